// Package catalog loads the static exercise content table: exercise specs
// and the ordered exercise lists for each phase, MEGA phase and
// specialization.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/claude/liftguard/internal/models"
)

//go:embed default.yaml
var defaultTable []byte

// ErrUnknownExercise is returned when a name is not in the table.
var ErrUnknownExercise = errors.New("unknown exercise")

// phaseTable maps phase → workout slot → ordered exercise names.
type phaseTable map[int]map[int][]string

type file struct {
	Exercises      []models.ExerciseSpec       `yaml:"exercises"`
	Standard       phaseTable                  `yaml:"standard"`
	Mega           phaseTable                  `yaml:"mega"`
	Specialization map[string]map[int][]string `yaml:"specialization"`
}

// Catalog is a read-only view of the content table. It is safe for
// concurrent use once built.
type Catalog struct {
	specs          map[string]models.ExerciseSpec
	names          []string
	standard       phaseTable
	mega           phaseTable
	specialization map[string]map[int][]string
}

// Default returns the embedded content table.
func Default() (*Catalog, error) {
	return Parse(defaultTable)
}

// Load reads a content table from path. An empty path loads the embedded
// default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse builds a Catalog from YAML and checks that every list entry names a
// known exercise.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	c := &Catalog{
		specs:          make(map[string]models.ExerciseSpec, len(f.Exercises)),
		standard:       f.Standard,
		mega:           f.Mega,
		specialization: make(map[string]map[int][]string, len(f.Specialization)),
	}
	for _, spec := range f.Exercises {
		spec, err := normalize(spec)
		if err != nil {
			return nil, err
		}
		k := key(spec.Name)
		if _, dup := c.specs[k]; dup {
			return nil, fmt.Errorf("duplicate exercise %q", spec.Name)
		}
		c.specs[k] = spec
		c.names = append(c.names, spec.Name)
	}
	for group, slots := range f.Specialization {
		c.specialization[key(group)] = slots
	}

	check := func(where string, slots map[int][]string) error {
		for slot, names := range slots {
			for _, n := range names {
				if _, ok := c.specs[key(n)]; !ok {
					return fmt.Errorf("%s slot %d: %w: %q", where, slot, ErrUnknownExercise, n)
				}
			}
		}
		return nil
	}
	for phase, slots := range c.standard {
		if err := check(fmt.Sprintf("standard phase %d", phase), slots); err != nil {
			return nil, err
		}
	}
	for phase, slots := range c.mega {
		if err := check(fmt.Sprintf("mega phase %d", phase), slots); err != nil {
			return nil, err
		}
	}
	for group, slots := range c.specialization {
		if err := check("specialization "+group, slots); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func normalize(s models.ExerciseSpec) (models.ExerciseSpec, error) {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return s, errors.New("exercise without a name")
	}
	if s.Method == "" {
		s.Method = models.MethodStraight
	}
	if !s.Method.Valid() {
		return s, fmt.Errorf("exercise %q: invalid method %q", s.Name, s.Method)
	}
	if s.Equipment == "" {
		s.Equipment = models.EquipmentBarbell
	}
	if !s.Equipment.Valid() {
		return s, fmt.Errorf("exercise %q: invalid equipment %q", s.Name, s.Equipment)
	}
	if s.RepRange.Min < 1 || s.RepRange.Max < s.RepRange.Min {
		return s, fmt.Errorf("exercise %q: invalid rep range %d-%d", s.Name, s.RepRange.Min, s.RepRange.Max)
	}
	if s.Increment < 0 {
		return s, fmt.Errorf("exercise %q: negative increment", s.Name)
	}
	return s, nil
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Lookup returns the spec for name, matched case-insensitively.
func (c *Catalog) Lookup(name string) (models.ExerciseSpec, error) {
	spec, ok := c.specs[key(name)]
	if !ok {
		return models.ExerciseSpec{}, fmt.Errorf("%w: %q", ErrUnknownExercise, name)
	}
	return spec, nil
}

// Names returns every exercise name in table order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Indicators returns the indicator exercises in table order.
func (c *Catalog) Indicators() []models.ExerciseSpec {
	var out []models.ExerciseSpec
	for _, n := range c.names {
		if s := c.specs[key(n)]; s.Indicator {
			out = append(out, s)
		}
	}
	return out
}

// SpecializationGroups returns the muscle groups that have a specialization
// program, sorted.
func (c *Catalog) SpecializationGroups() []string {
	return slices.Sorted(maps.Keys(c.specialization))
}

// StandardList returns the standard program list for phase and slot.
func (c *Catalog) StandardList(phase, slot int) []string {
	return clone(c.standard[phase][slot])
}

// MegaList returns the MEGA program list for phase and slot.
func (c *Catalog) MegaList(phase, slot int) []string {
	return clone(c.mega[phase][slot])
}

// SpecializationList returns the specialization list for a muscle group
// and slot.
func (c *Catalog) SpecializationList(group string, slot int) []string {
	return clone(c.specialization[key(group)][slot])
}

func clone(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
