package advisor

import (
	"context"

	"github.com/claude/liftguard/internal/history"
	"github.com/claude/liftguard/internal/models"
	"github.com/claude/liftguard/internal/progression"
)

// Indicator is the progress summary of one indicator exercise.
type Indicator struct {
	Exercise     string                 `json:"exercise"`
	Last         *models.SetPerformance `json:"last,omitempty"`
	Sessions     int                    `json:"sessions"`
	PlateauCount int                    `json:"plateau_count"`
	Next         progression.Target     `json:"next"`
}

// Indicators summarizes every indicator exercise in catalog order.
func (a *Advisor) Indicators(ctx context.Context, userID int) ([]Indicator, error) {
	ds, err := a.deloadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []Indicator{}
	for _, spec := range a.catalog.Indicators() {
		anchors, err := a.anchors(ctx, spec.Name, a.today().AddDate(0, 0, 1), userID, &ds)
		if err != nil {
			return nil, err
		}
		last := history.Last(anchors)
		out = append(out, Indicator{
			Exercise:     spec.Name,
			Last:         last,
			Sessions:     len(anchors),
			PlateauCount: history.PlateauCount(anchors),
			Next:         a.target(spec, last, ds).Target,
		})
	}
	return out, nil
}
