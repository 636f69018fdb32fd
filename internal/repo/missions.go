package repo

import (
	"context"
	"database/sql"

	"crewboard/internal/domain"
)

func (r Repo) InsertMissionTx(ctx context.Context, tx *sql.Tx, m domain.Mission) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO missions(id,project_id,name,description,status,created_at,updated_at,completed_at,archived_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		m.ID, m.ProjectID, m.Name, nullable(m.Description), m.Status, m.CreatedAt, m.UpdatedAt,
		nullable(m.CompletedAt), nullable(m.ArchivedAt))
	return err
}

func scanMission(scan func(dest ...any) error) (domain.Mission, error) {
	var m domain.Mission
	var desc, completedAt, archivedAt sql.NullString
	err := scan(&m.ID, &m.ProjectID, &m.Name, &desc, &m.Status, &m.CreatedAt, &m.UpdatedAt, &completedAt, &archivedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if err != nil {
		return m, err
	}
	if desc.Valid {
		m.Description = desc.String
	}
	if completedAt.Valid {
		m.CompletedAt = completedAt.String
	}
	if archivedAt.Valid {
		m.ArchivedAt = archivedAt.String
	}
	return m, nil
}

const missionColumns = `id,project_id,name,description,status,created_at,updated_at,completed_at,archived_at`

func (r Repo) GetMission(ctx context.Context, id string) (domain.Mission, error) {
	return scanMission(r.DB.QueryRowContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE id=?`, id).Scan)
}

func (r Repo) GetMissionTx(ctx context.Context, tx *sql.Tx, id string) (domain.Mission, error) {
	return scanMission(tx.QueryRowContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE id=?`, id).Scan)
}

func (r Repo) ListMissions(ctx context.Context, projectID string, includeArchived bool) ([]domain.Mission, error) {
	query := `SELECT ` + missionColumns + ` FROM missions WHERE project_id=?`
	if !includeArchived {
		query += ` AND archived_at IS NULL`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Mission
	for rows.Next() {
		m, err := scanMission(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// ArchiveMissionTx marks the mission archived only if it is not archived
// yet. Zero rows affected means it was already archived.
func (r Repo) ArchiveMissionTx(ctx context.Context, tx *sql.Tx, id, archivedAt string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE missions SET status=?, archived_at=?, updated_at=? WHERE id=? AND archived_at IS NULL`,
		domain.MissionArchived, archivedAt, archivedAt, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r Repo) CompleteMissionTx(ctx context.Context, tx *sql.Tx, id, completedAt string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE missions SET status=?, completed_at=?, updated_at=? WHERE id=? AND archived_at IS NULL AND completed_at IS NULL`,
		domain.MissionCompleted, completedAt, completedAt, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
