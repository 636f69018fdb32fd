package repo

import (
	"context"
	"database/sql"

	"crewboard/internal/domain"
)

// TryInsertClaimTx attempts to take the claim row for an item. INSERT OR
// IGNORE plus the item_id primary key makes two racing claimers resolve to
// exactly one success; the loser sees false.
func (r Repo) TryInsertClaimTx(ctx context.Context, tx *sql.Tx, c domain.Claim) (bool, error) {
	res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO claims(item_id,project_id,agent,claimed_at) VALUES (?,?,?,?)`,
		c.ItemID, c.ProjectID, c.Agent, c.ClaimedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r Repo) GetClaim(ctx context.Context, itemID string) (domain.Claim, error) {
	return scanClaim(r.DB.QueryRowContext(ctx, `SELECT item_id,project_id,agent,claimed_at FROM claims WHERE item_id=?`, itemID))
}

func (r Repo) GetClaimTx(ctx context.Context, tx *sql.Tx, itemID string) (domain.Claim, error) {
	return scanClaim(tx.QueryRowContext(ctx, `SELECT item_id,project_id,agent,claimed_at FROM claims WHERE item_id=?`, itemID))
}

func scanClaim(row *sql.Row) (domain.Claim, error) {
	var c domain.Claim
	err := row.Scan(&c.ItemID, &c.ProjectID, &c.Agent, &c.ClaimedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) DeleteClaimTx(ctx context.Context, tx *sql.Tx, itemID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM claims WHERE item_id=?`, itemID)
	return err
}

// DeleteClaimsForMissionTx drops claims on every item of a mission, used
// when archiving the mission.
func (r Repo) DeleteClaimsForMissionTx(ctx context.Context, tx *sql.Tx, missionID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM claims WHERE item_id IN (SELECT id FROM items WHERE mission_id=?)`, missionID)
	return err
}

func (r Repo) ListClaimsByAgent(ctx context.Context, projectID, agent string) ([]domain.Claim, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT item_id,project_id,agent,claimed_at FROM claims WHERE project_id=? AND agent=? ORDER BY claimed_at ASC, item_id ASC`,
		projectID, agent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Claim
	for rows.Next() {
		var c domain.Claim
		if err := rows.Scan(&c.ItemID, &c.ProjectID, &c.Agent, &c.ClaimedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
