// Package feed turns board state into a per-viewer event stream. Each
// subscription polls on a fixed interval, diffs what it saw last time, and
// pushes the difference to its consumer. Subscriptions share nothing, so a
// slow or dead consumer never affects another.
package feed

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"crewboard/internal/activity"
	"crewboard/internal/domain"
	"crewboard/internal/repo"
)

// Stream event types. The union is closed; consumers switch on exactly
// these three.
type BoardUpdated struct {
	ItemID         string `json:"item_id"`
	Title          string `json:"title"`
	StageID        string `json:"stage_id"`
	Agent          string `json:"agent,omitempty"`
	Priority       int    `json:"priority"`
	RejectionCount int    `json:"rejection_count"`
	UpdatedAt      string `json:"updated_at"`
}

type ActivityEntryAdded struct {
	domain.ActivityEntry
}

type BoardReset struct {
	MissionID string `json:"mission_id"`
	Reason    string `json:"reason"`
}

type itemSummary struct {
	title      string
	stageID    string
	agent      string
	priority   int
	rejections int
	updatedAt  string
}

func summarize(it domain.Item) itemSummary {
	return itemSummary{
		title:      it.Title,
		stageID:    it.StageID,
		agent:      it.AssignedAgent,
		priority:   it.Priority,
		rejections: it.RejectionCount,
		updatedAt:  it.UpdatedAt,
	}
}

// Subscription owns the state of one connected viewer: the item summaries it
// has delivered and its byte cursor into the activity log. State lives only
// as long as Run.
type Subscription struct {
	Repo      repo.Repo
	ProjectID string
	LogPath   string
	Interval  time.Duration
	Logger    *log.Logger

	tracked          map[string]itemSummary
	archivedMissions map[string]bool
	logCursor        int64
}

func NewSubscription(r repo.Repo, projectID, logPath string, interval time.Duration) *Subscription {
	return &Subscription{
		Repo:      r,
		ProjectID: projectID,
		LogPath:   logPath,
		Interval:  interval,
		Logger:    log.Default(),
	}
}

// Run polls until ctx is done or send fails. The first cycle delivers the
// whole current board; activity starts at the log's current end, so a new
// viewer sees new entries only. Poll errors are logged and retried on the
// next tick; they never kill the subscription.
func (s *Subscription) Run(ctx context.Context, send func(any) error) error {
	if s.Interval <= 0 {
		s.Interval = time.Second
	}
	if err := s.ensureInit(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		if err := s.poll(ctx, send); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// errSend wraps a failed delivery so poll can tell it apart from a storage
// error, which only skips the cycle.
type errSend struct{ err error }

func (e errSend) Error() string { return e.err.Error() }
func (e errSend) Unwrap() error { return e.err }

func (s *Subscription) ensureInit(ctx context.Context) error {
	if s.tracked != nil {
		return nil
	}
	s.tracked = make(map[string]itemSummary)
	s.archivedMissions = make(map[string]bool)
	size, err := activity.Size(s.LogPath)
	if err != nil {
		return err
	}
	s.logCursor = size
	if err := s.seedMissions(ctx); err != nil {
		s.logf("feed: seed missions: %v", err)
	}
	return nil
}

func (s *Subscription) poll(ctx context.Context, send func(any) error) error {
	err := s.Poll(ctx, send)
	var se errSend
	if errors.As(err, &se) {
		return se.err
	}
	if err != nil {
		s.logf("feed: poll: %v", err)
	}
	return nil
}

// Poll runs one diff cycle: mission archivals, then item changes, then new
// activity lines. Storage and parse errors come back raw so the caller
// decides whether they are fatal; Run logs and retries them.
func (s *Subscription) Poll(ctx context.Context, send func(any) error) error {
	if err := s.ensureInit(ctx); err != nil {
		return err
	}
	if err := s.diffMissions(ctx, send); err != nil {
		return err
	}
	if err := s.diffItems(ctx, send); err != nil {
		return err
	}
	return s.tailActivity(send)
}

func (s *Subscription) seedMissions(ctx context.Context) error {
	missions, err := s.Repo.ListMissions(ctx, s.ProjectID, true)
	if err != nil {
		return err
	}
	for _, m := range missions {
		s.archivedMissions[m.ID] = m.ArchivedAt != ""
	}
	return nil
}

// diffMissions emits board-reset when a mission transitions to archived and
// clears tracked items so the next item diff rebuilds the board view. The
// map is rebuilt each cycle so ids gone from the listing stop consuming
// memory, same as tracked items.
func (s *Subscription) diffMissions(ctx context.Context, send func(any) error) error {
	missions, err := s.Repo.ListMissions(ctx, s.ProjectID, true)
	if err != nil {
		return err
	}
	next := make(map[string]bool, len(missions))
	for _, m := range missions {
		wasArchived := s.archivedMissions[m.ID]
		nowArchived := m.ArchivedAt != ""
		next[m.ID] = nowArchived
		if nowArchived && !wasArchived {
			if err := send(BoardReset{MissionID: m.ID, Reason: "mission archived"}); err != nil {
				return errSend{err}
			}
			s.tracked = make(map[string]itemSummary)
		}
	}
	s.archivedMissions = next
	return nil
}

func (s *Subscription) diffItems(ctx context.Context, send func(any) error) error {
	items, err := s.Repo.ActiveItems(ctx, s.ProjectID)
	if err != nil {
		return err
	}
	// Rebuilding the map drops ids absent from the result, so archived or
	// deleted items stop consuming memory on the next cycle.
	next := make(map[string]itemSummary, len(items))
	for _, it := range items {
		summary := summarize(it)
		next[it.ID] = summary
		if prev, seen := s.tracked[it.ID]; seen && prev == summary {
			continue
		}
		if err := send(BoardUpdated{
			ItemID:         it.ID,
			Title:          summary.title,
			StageID:        summary.stageID,
			Agent:          summary.agent,
			Priority:       summary.priority,
			RejectionCount: summary.rejections,
			UpdatedAt:      summary.updatedAt,
		}); err != nil {
			return errSend{err}
		}
	}
	s.tracked = next
	return nil
}

// tailActivity delivers new complete log lines in file order. The cursor
// advances per delivered entry, so a malformed line or failed send leaves it
// exactly at the first undelivered entry.
func (s *Subscription) tailActivity(send func(any) error) error {
	entries, readErr := activity.ReadNew(s.LogPath, s.logCursor)
	for _, e := range entries {
		if err := send(ActivityEntryAdded{ActivityEntry: e.Entry}); err != nil {
			return errSend{err}
		}
		s.logCursor = e.Offset
	}
	if readErr != nil {
		return readErr
	}
	return nil
}

// TrackedCount reports how many items the subscription currently remembers.
func (s *Subscription) TrackedCount() int {
	return len(s.tracked)
}

func (s *Subscription) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Warnf(format, args...)
	}
}
