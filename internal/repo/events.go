package repo

import (
	"context"
	"database/sql"
	"strings"

	"crewboard/internal/domain"
)

func scanEvent(scan func(dest ...any) error) (domain.Event, error) {
	var e domain.Event
	var projectID, entityID sql.NullString
	err := scan(&e.ID, &e.TS, &e.Type, &projectID, &e.EntityKind, &entityID, &e.AgentID, &e.Payload)
	if err != nil {
		return e, err
	}
	if projectID.Valid {
		e.ProjectID = projectID.String
	}
	if entityID.Valid {
		e.EntityID = entityID.String
	}
	return e, nil
}

func (r Repo) ListEvents(ctx context.Context, projectID string, limit int, beforeID int64) ([]domain.Event, error) {
	clauses := []string{"project_id=?"}
	args := []any{projectID}
	if beforeID > 0 {
		clauses = append(clauses, "id < ?")
		args = append(args, beforeID)
	}
	query := `SELECT id,ts,type,project_id,entity_kind,entity_id,agent_id,payload_json FROM events WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY id DESC`
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// EventsAfter returns up to limit events with id greater than afterID in
// ascending order, the shape webhook dispatch wants.
func (r Repo) EventsAfter(ctx context.Context, limit int, afterID int64, projectID string) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,project_id,entity_kind,entity_id,agent_id,payload_json
FROM events WHERE project_id=? AND id > ? ORDER BY id ASC LIMIT ?`, projectID, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) LatestEventID(ctx context.Context, projectID string) (int64, error) {
	var id sql.NullInt64
	err := r.DB.QueryRowContext(ctx, `SELECT MAX(id) FROM events WHERE project_id=?`, projectID).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id.Int64, nil
}
