package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"crewboard/internal/domain"
)

const itemColumns = `id,project_id,mission_id,type,title,description,priority,stage_id,assigned_agent,rejection_count,artifacts_json,created_at,updated_at,completed_at,archived_at`

func (r Repo) InsertItemTx(ctx context.Context, tx *sql.Tx, it domain.Item) error {
	artifacts, err := marshalArtifacts(it.Artifacts)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO items(`+itemColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		it.ID, it.ProjectID, nullable(it.MissionID), it.Type, it.Title, nullable(it.Description), it.Priority,
		it.StageID, nullable(it.AssignedAgent), it.RejectionCount, artifacts,
		it.CreatedAt, it.UpdatedAt, nullable(it.CompletedAt), nullable(it.ArchivedAt))
	if err != nil {
		return err
	}
	for _, dep := range it.DependsOn {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO item_deps(item_id,depends_on_item_id) VALUES (?,?)`, it.ID, dep); err != nil {
			return err
		}
	}
	return nil
}

func scanItem(scan func(dest ...any) error) (domain.Item, error) {
	var it domain.Item
	var missionID, description, agent, artifacts, completedAt, archivedAt sql.NullString
	err := scan(&it.ID, &it.ProjectID, &missionID, &it.Type, &it.Title, &description, &it.Priority,
		&it.StageID, &agent, &it.RejectionCount, &artifacts, &it.CreatedAt, &it.UpdatedAt, &completedAt, &archivedAt)
	if err == sql.ErrNoRows {
		return it, ErrNotFound
	}
	if err != nil {
		return it, err
	}
	if missionID.Valid {
		it.MissionID = missionID.String
	}
	if description.Valid {
		it.Description = description.String
	}
	if agent.Valid {
		it.AssignedAgent = agent.String
	}
	if completedAt.Valid {
		it.CompletedAt = completedAt.String
	}
	if archivedAt.Valid {
		it.ArchivedAt = archivedAt.String
	}
	if artifacts.Valid && artifacts.String != "" {
		_ = json.Unmarshal([]byte(artifacts.String), &it.Artifacts)
	}
	return it, nil
}

func (r Repo) GetItem(ctx context.Context, id string) (domain.Item, error) {
	it, err := scanItem(r.DB.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id=?`, id).Scan)
	if err != nil {
		return it, err
	}
	it.DependsOn, err = r.listItemDeps(ctx, r.DB.QueryContext, id)
	return it, err
}

func (r Repo) GetItemTx(ctx context.Context, tx *sql.Tx, id string) (domain.Item, error) {
	it, err := scanItem(tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id=?`, id).Scan)
	if err != nil {
		return it, err
	}
	it.DependsOn, err = r.listItemDeps(ctx, tx.QueryContext, id)
	return it, err
}

type queryFn func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

func (r Repo) listItemDeps(ctx context.Context, query queryFn, itemID string) ([]string, error) {
	rows, err := query(ctx, `SELECT depends_on_item_id FROM item_deps WHERE item_id=? ORDER BY depends_on_item_id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var deps []string
	for rows.Next() {
		var dep string
		if err := rows.Scan(&dep); err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, rows.Err()
}

// ItemFilter narrows ListItems. Zero values mean no constraint.
type ItemFilter struct {
	StageID         string
	MissionID       string
	AssignedAgent   string
	IncludeArchived bool
	Limit           int
	CursorUpdatedAt string
	CursorID        string
}

func (r Repo) ListItems(ctx context.Context, projectID string, f ItemFilter) ([]domain.Item, error) {
	clauses := []string{"project_id=?"}
	args := []any{projectID}
	if !f.IncludeArchived {
		clauses = append(clauses, "archived_at IS NULL")
	}
	if f.StageID != "" {
		clauses = append(clauses, "stage_id=?")
		args = append(args, f.StageID)
	}
	if f.MissionID != "" {
		clauses = append(clauses, "mission_id=?")
		args = append(args, f.MissionID)
	}
	if f.AssignedAgent != "" {
		clauses = append(clauses, "assigned_agent=?")
		args = append(args, f.AssignedAgent)
	}
	if f.CursorUpdatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(updated_at < ? OR (updated_at = ? AND id < ?))")
		args = append(args, f.CursorUpdatedAt, f.CursorUpdatedAt, f.CursorID)
	}
	query := `SELECT ` + itemColumns + ` FROM items WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY updated_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Item
	for rows.Next() {
		it, err := scanItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		res[i].DependsOn, err = r.listItemDeps(ctx, r.DB.QueryContext, res[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// ActiveItems returns the non-archived items of a project with their
// dependency edges, the input for dependency graph evaluation and feed
// diffing.
func (r Repo) ActiveItems(ctx context.Context, projectID string) ([]domain.Item, error) {
	return r.ListItems(ctx, projectID, ItemFilter{})
}

// UpdateItemStageTx moves an item only if it is still unarchived and in
// fromStage. Zero rows affected means the item changed under the caller.
func (r Repo) UpdateItemStageTx(ctx context.Context, tx *sql.Tx, id, fromStage, toStage, updatedAt, completedAt string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE items SET stage_id=?, updated_at=?, completed_at=COALESCE(?, completed_at)
WHERE id=? AND archived_at IS NULL AND stage_id=?`,
		toStage, updatedAt, nullable(completedAt), id, fromStage)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RejectItemTx bumps the rejection counter and moves the item to toStage in
// one guarded write.
func (r Repo) RejectItemTx(ctx context.Context, tx *sql.Tx, id, fromStage, toStage, updatedAt string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE items SET stage_id=?, rejection_count=rejection_count+1, assigned_agent=NULL, updated_at=?
WHERE id=? AND archived_at IS NULL AND stage_id=?`,
		toStage, updatedAt, id, fromStage)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r Repo) SetItemAgentTx(ctx context.Context, tx *sql.Tx, id, agent, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE items SET assigned_agent=?, updated_at=? WHERE id=?`, nullable(agent), updatedAt, id)
	return err
}

func (r Repo) ArchiveMissionItemsTx(ctx context.Context, tx *sql.Tx, missionID, archivedAt string) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE items SET archived_at=?, updated_at=? WHERE mission_id=? AND archived_at IS NULL`,
		archivedAt, archivedAt, missionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func marshalArtifacts(artifacts []string) (any, error) {
	if len(artifacts) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(artifacts)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
