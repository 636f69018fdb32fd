package engine

import (
	"context"

	"crewboard/internal/depgraph"
	"crewboard/internal/stage"
)

// DependencyReport is the result of one dependency evaluation over a
// project's active items.
type DependencyReport struct {
	Valid        bool       `json:"valid"`
	Cycles       [][]string `json:"cycles"`
	ReadyItems   []string   `json:"ready_items"`
	BlockedItems []string   `json:"blocked_items"`
}

// CheckDependencies builds a fresh graph from the project's active items and
// reports cycles plus the ready/blocked split. Diagnostic only; cycles are
// reported, never rejected.
func (e Engine) CheckDependencies(ctx context.Context, projectID string) (DependencyReport, error) {
	if _, err := e.Repo.GetProject(ctx, projectID); err != nil {
		return DependencyReport{}, err
	}
	items, err := e.Repo.ActiveItems(ctx, projectID)
	if err != nil {
		return DependencyReport{}, err
	}
	g := depgraph.FromItems(items)
	cycles := g.DetectCycles()
	ready, blocked := g.Classify()
	// Consumers always get arrays, even on an empty board.
	if cycles == nil {
		cycles = [][]string{}
	}
	if ready == nil {
		ready = []string{}
	}
	if blocked == nil {
		blocked = []string{}
	}
	return DependencyReport{
		Valid:        len(cycles) == 0,
		Cycles:       cycles,
		ReadyItems:   ready,
		BlockedItems: blocked,
	}, nil
}

// NextItem picks the highest-priority claimable ready item for an agent, or
// ok=false when nothing qualifies.
func (e Engine) NextItem(ctx context.Context, projectID string) (string, bool, error) {
	report, err := e.CheckDependencies(ctx, projectID)
	if err != nil {
		return "", false, err
	}
	bestPriority := -1
	best := ""
	for _, id := range report.ReadyItems {
		it, err := e.Repo.GetItem(ctx, id)
		if err != nil {
			return "", false, err
		}
		if it.AssignedAgent != "" {
			continue
		}
		if !stage.AcceptsClaims(it.StageID) {
			continue
		}
		if it.Priority > bestPriority {
			bestPriority = it.Priority
			best = id
		}
	}
	return best, best != "", nil
}
