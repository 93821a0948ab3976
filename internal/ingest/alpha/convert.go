package alpha

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftguard/internal/models"
)

// sessionNamespace seeds the deterministic session IDs so a re-imported
// export groups its sets under the same session as before.
var sessionNamespace = uuid.MustParse("6f1c2a9e-3b7d-4c55-9a0e-1d2f4b8c7e31")

// Catalog resolves exported exercise names to known exercises.
type Catalog interface {
	Lookup(name string) (models.ExerciseSpec, error)
}

// Logs flattens parsed sessions into exercise logs for userID. Known
// exercises take the catalog name and method; others keep the exported
// name and a method inferred from the working-set weights. The second
// return lists the unknown names, sorted.
func Logs(sessions []Session, userID int, cat Catalog) ([]models.ExerciseLog, []string) {
	var logs []models.ExerciseLog
	unknown := map[string]bool{}
	for _, s := range sessions {
		date := time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), 0, 0, 0, 0, time.UTC)
		sessionID := SessionID(userID, s)
		for _, ex := range s.Exercises {
			name, method := ex.Name, inferMethod(ex.WorkingSets())
			if cat != nil {
				if spec, err := cat.Lookup(ex.Name); err == nil {
					name, method = spec.Name, spec.Method
				} else {
					unknown[ex.Name] = true
				}
			}
			target := ""
			if ex.TargetReps > 0 {
				target = strconv.Itoa(ex.TargetReps)
			}
			for _, set := range ex.Sets {
				logs = append(logs, models.ExerciseLog{
					ID:        uuid.New(),
					SessionID: sessionID,
					UserID:    userID,
					Date:      date,
					Exercise:  name,
					Method:    method,
					Mode:      models.ModeStandard,
					Set: models.SetPerformance{
						SetNumber:  set.Number,
						Weight:     set.Weight,
						Reps:       set.Reps,
						Completed:  set.Reps > 0,
						IsWarmup:   set.IsWarmup,
						TargetReps: target,
					},
				})
			}
		}
	}
	names := make([]string, 0, len(unknown))
	for n := range unknown {
		names = append(names, n)
	}
	slices.Sort(names)
	return logs, names
}

// SessionID derives a stable ID from the user, start time and name of a
// session.
func SessionID(userID int, s Session) uuid.UUID {
	key := fmt.Sprintf("%d|%s|%s", userID, s.Date.Format(time.DateTime), s.Name)
	return uuid.NewSHA1(sessionNamespace, []byte(key))
}

// inferMethod reads the set structure: weights falling set over set are a
// reverse pyramid, rising ones an ascending ladder, anything else straight.
func inferMethod(sets []Set) models.TrainingMethod {
	if len(sets) < 2 {
		return models.MethodStraight
	}
	down, up := true, true
	for i := 1; i < len(sets); i++ {
		if sets[i].Weight >= sets[i-1].Weight {
			down = false
		}
		if sets[i].Weight <= sets[i-1].Weight {
			up = false
		}
	}
	switch {
	case down:
		return models.MethodRPT
	case up:
		return models.MethodAscending
	}
	return models.MethodStraight
}
