package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"crewboard/internal/config"
	"crewboard/internal/domain"
	"crewboard/internal/events"
	"crewboard/internal/repo"
	"crewboard/internal/stage"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

// Sentinel errors; the server maps these to HTTP statuses.
var (
	// ErrInvalid wraps request validation failures caught before any write.
	ErrInvalid = errors.New("invalid request")
	// ErrClaimHeld means another agent already holds the claim.
	ErrClaimHeld = errors.New("item already claimed")
	// ErrNotClaimed means the item has no claim to release.
	ErrNotClaimed = errors.New("item not claimed")
	// ErrNotOwner means the caller does not hold the claim.
	ErrNotOwner = errors.New("claim held by another agent")
	// ErrNotClaimable means the item's stage does not accept claims.
	ErrNotClaimable = errors.New("stage does not accept claims")
	// ErrArchived means the item or mission is archived.
	ErrArchived = errors.New("archived")
	// ErrStale means the row changed between the in-tx read and the
	// guarded write; the caller can retry.
	ErrStale = errors.New("concurrent modification")
)

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func newID(parts ...string) string {
	seed := ""
	for _, p := range parts {
		seed += p + "|"
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

// InitProject creates a project with its default config, migrations already
// run.
func (e Engine) InitProject(ctx context.Context, projectID, description, agentID string) (domain.Project, error) {
	if projectID == "" {
		return domain.Project{}, fmt.Errorf("%w: project id is required", ErrInvalid)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	now := e.timestamp()
	p := domain.Project{
		ID:          projectID,
		Status:      "active",
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	if err := e.Repo.UpsertProjectConfigTx(ctx, tx, p.ID, config.Default(p.ID)); err != nil {
		return domain.Project{}, fmt.Errorf("insert project config: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.ProjectCreated, p.ID, "project", p.ID, agentID, events.EventPayload{"status": p.Status}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// ItemCreateOptions are parameters for creating an item.
type ItemCreateOptions struct {
	ID          string
	ProjectID   string
	MissionID   string
	Type        string
	Title       string
	Description string
	Priority    int
	DependsOn   []string
	Artifacts   []string
	AgentID     string
}

func (e Engine) CreateItem(ctx context.Context, opts ItemCreateOptions) (domain.Item, error) {
	if opts.Title == "" {
		return domain.Item{}, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if opts.ProjectID == "" {
		return domain.Item{}, fmt.Errorf("%w: project is required", ErrInvalid)
	}
	if opts.Type == "" {
		opts.Type = domain.ItemTypeTechnical
	}
	if !domain.ValidItemType(opts.Type) {
		return domain.Item{}, fmt.Errorf("%w: unknown item type %q", ErrInvalid, opts.Type)
	}
	if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
		return domain.Item{}, err
	}
	if opts.MissionID != "" {
		m, err := e.Repo.GetMission(ctx, opts.MissionID)
		if err != nil {
			return domain.Item{}, err
		}
		if m.ProjectID != opts.ProjectID {
			return domain.Item{}, fmt.Errorf("%w: mission %s not in project %s", ErrInvalid, opts.MissionID, opts.ProjectID)
		}
		if m.ArchivedAt != "" {
			return domain.Item{}, fmt.Errorf("mission %s: %w", opts.MissionID, ErrArchived)
		}
	}
	now := e.timestamp()
	id := opts.ID
	if id == "" {
		id = newID(opts.ProjectID, opts.Title, now)
	}
	it := domain.Item{
		ID:          id,
		ProjectID:   opts.ProjectID,
		MissionID:   opts.MissionID,
		Type:        opts.Type,
		Title:       opts.Title,
		Description: opts.Description,
		Priority:    opts.Priority,
		StageID:     stage.Briefings,
		Artifacts:   opts.Artifacts,
		DependsOn:   opts.DependsOn,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Item{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertItemTx(ctx, tx, it); err != nil {
		return domain.Item{}, err
	}
	if err := e.Events.Append(ctx, tx, events.ItemCreated, it.ProjectID, "item", it.ID, opts.AgentID, events.EventPayload{
		"title": it.Title, "type": it.Type, "stage": it.StageID,
	}); err != nil {
		return domain.Item{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Item{}, err
	}
	return it, nil
}

// MoveItem transitions an item to another stage. The move is re-checked by a
// guarded update so a concurrent move surfaces as ErrStale instead of
// silently overwriting.
func (e Engine) MoveItem(ctx context.Context, itemID, toStage, agentID string) (domain.Item, error) {
	if !stage.IsValid(toStage) {
		return domain.Item{}, fmt.Errorf("%w: unknown stage %q", ErrInvalid, toStage)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Item{}, err
	}
	defer tx.Rollback()

	it, err := e.Repo.GetItemTx(ctx, tx, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	if it.ArchivedAt != "" {
		return domain.Item{}, fmt.Errorf("item %s: %w", itemID, ErrArchived)
	}
	if err := stage.Check(it.StageID, toStage); err != nil {
		return domain.Item{}, err
	}
	now := e.timestamp()
	completedAt := ""
	if toStage == stage.Done {
		completedAt = now
	}
	ok, err := e.Repo.UpdateItemStageTx(ctx, tx, it.ID, it.StageID, toStage, now, completedAt)
	if err != nil {
		return domain.Item{}, err
	}
	if !ok {
		return domain.Item{}, fmt.Errorf("item %s: %w", itemID, ErrStale)
	}
	if toStage == stage.Done {
		// Finished work keeps no claim.
		if err := e.Repo.DeleteClaimTx(ctx, tx, it.ID); err != nil {
			return domain.Item{}, err
		}
		if err := e.Repo.SetItemAgentTx(ctx, tx, it.ID, "", now); err != nil {
			return domain.Item{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, events.ItemMoved, it.ProjectID, "item", it.ID, agentID, events.EventPayload{
		"from": it.StageID, "to": toStage,
	}); err != nil {
		return domain.Item{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Item{}, err
	}
	return e.Repo.GetItem(ctx, it.ID)
}
