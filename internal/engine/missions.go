package engine

import (
	"context"
	"fmt"

	"crewboard/internal/domain"
	"crewboard/internal/events"
	"crewboard/internal/stage"
)

func (e Engine) CreateMission(ctx context.Context, projectID, name, description, agentID string) (domain.Mission, error) {
	if name == "" {
		return domain.Mission{}, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if _, err := e.Repo.GetProject(ctx, projectID); err != nil {
		return domain.Mission{}, err
	}
	now := e.timestamp()
	m := domain.Mission{
		ID:          newID(projectID, "mission", name, now),
		ProjectID:   projectID,
		Name:        name,
		Description: description,
		Status:      domain.MissionActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Mission{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertMissionTx(ctx, tx, m); err != nil {
		return domain.Mission{}, err
	}
	if err := e.Events.Append(ctx, tx, events.MissionCreated, projectID, "mission", m.ID, agentID, events.EventPayload{
		"name": m.Name,
	}); err != nil {
		return domain.Mission{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Mission{}, err
	}
	return m, nil
}

// ArchiveMission archives the mission and all of its non-archived items in
// one transaction. Observers never see the mission archived with live items
// still on the board.
func (e Engine) ArchiveMission(ctx context.Context, missionID, agentID string) (domain.Mission, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Mission{}, err
	}
	defer tx.Rollback()

	m, err := e.Repo.GetMissionTx(ctx, tx, missionID)
	if err != nil {
		return domain.Mission{}, err
	}
	now := e.timestamp()
	ok, err := e.Repo.ArchiveMissionTx(ctx, tx, m.ID, now)
	if err != nil {
		return domain.Mission{}, err
	}
	if !ok {
		return domain.Mission{}, fmt.Errorf("mission %s: %w", missionID, ErrArchived)
	}
	archived, err := e.Repo.ArchiveMissionItemsTx(ctx, tx, m.ID, now)
	if err != nil {
		return domain.Mission{}, err
	}
	if err := e.Repo.DeleteClaimsForMissionTx(ctx, tx, m.ID); err != nil {
		return domain.Mission{}, err
	}
	if err := e.Events.Append(ctx, tx, events.MissionArchived, m.ProjectID, "mission", m.ID, agentID, events.EventPayload{
		"items_archived": archived,
	}); err != nil {
		return domain.Mission{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Mission{}, err
	}
	return e.Repo.GetMission(ctx, m.ID)
}

// CompleteMission marks a mission completed once every item on it is done.
func (e Engine) CompleteMission(ctx context.Context, missionID, agentID string) (domain.Mission, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Mission{}, err
	}
	defer tx.Rollback()

	m, err := e.Repo.GetMissionTx(ctx, tx, missionID)
	if err != nil {
		return domain.Mission{}, err
	}
	if m.ArchivedAt != "" {
		return domain.Mission{}, fmt.Errorf("mission %s: %w", missionID, ErrArchived)
	}
	var open int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE mission_id=? AND archived_at IS NULL AND stage_id<>?`,
		m.ID, stage.Done).Scan(&open); err != nil {
		return domain.Mission{}, err
	}
	if open > 0 {
		return domain.Mission{}, fmt.Errorf("%w: mission %s has %d unfinished items", ErrInvalid, missionID, open)
	}
	now := e.timestamp()
	ok, err := e.Repo.CompleteMissionTx(ctx, tx, m.ID, now)
	if err != nil {
		return domain.Mission{}, err
	}
	if !ok {
		return domain.Mission{}, fmt.Errorf("mission %s: %w", missionID, ErrStale)
	}
	if err := e.Events.Append(ctx, tx, events.MissionCompleted, m.ProjectID, "mission", m.ID, agentID, nil); err != nil {
		return domain.Mission{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Mission{}, err
	}
	return e.Repo.GetMission(ctx, m.ID)
}
