package engine

import (
	"context"
	"errors"
	"fmt"

	"crewboard/internal/domain"
	"crewboard/internal/events"
	"crewboard/internal/repo"
	"crewboard/internal/stage"
)

// ClaimItem takes exclusive ownership of an item for an agent. Two agents
// racing for the same item resolve to exactly one winner; the loser gets
// ErrClaimHeld. Claiming does not move the item.
func (e Engine) ClaimItem(ctx context.Context, itemID, agentID string) (domain.Claim, error) {
	if agentID == "" {
		return domain.Claim{}, fmt.Errorf("%w: agent is required", ErrInvalid)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Claim{}, err
	}
	defer tx.Rollback()

	it, err := e.Repo.GetItemTx(ctx, tx, itemID)
	if err != nil {
		return domain.Claim{}, err
	}
	if it.ArchivedAt != "" {
		return domain.Claim{}, fmt.Errorf("item %s: %w", itemID, ErrArchived)
	}
	if !stage.AcceptsClaims(it.StageID) {
		return domain.Claim{}, fmt.Errorf("item %s in stage %s: %w", itemID, it.StageID, ErrNotClaimable)
	}
	now := e.timestamp()
	c := domain.Claim{
		ItemID:    it.ID,
		ProjectID: it.ProjectID,
		Agent:     agentID,
		ClaimedAt: now,
	}
	ok, err := e.Repo.TryInsertClaimTx(ctx, tx, c)
	if err != nil {
		return domain.Claim{}, err
	}
	if !ok {
		return domain.Claim{}, fmt.Errorf("item %s: %w", itemID, ErrClaimHeld)
	}
	if err := e.Repo.SetItemAgentTx(ctx, tx, it.ID, agentID, now); err != nil {
		return domain.Claim{}, err
	}
	if err := e.Events.Append(ctx, tx, events.ItemClaimed, it.ProjectID, "item", it.ID, agentID, events.EventPayload{
		"stage": it.StageID,
	}); err != nil {
		return domain.Claim{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Claim{}, err
	}
	return c, nil
}

// ReleaseItem gives a claim back without moving the item. Only the holder
// may release.
func (e Engine) ReleaseItem(ctx context.Context, itemID, agentID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	it, err := e.Repo.GetItemTx(ctx, tx, itemID)
	if err != nil {
		return err
	}
	c, err := e.Repo.GetClaimTx(ctx, tx, itemID)
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("item %s: %w", itemID, ErrNotClaimed)
	}
	if err != nil {
		return err
	}
	if c.Agent != agentID {
		return fmt.Errorf("item %s: %w", itemID, ErrNotOwner)
	}
	now := e.timestamp()
	if err := e.Repo.DeleteClaimTx(ctx, tx, itemID); err != nil {
		return err
	}
	if err := e.Repo.SetItemAgentTx(ctx, tx, itemID, "", now); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.ItemReleased, it.ProjectID, "item", it.ID, agentID, events.EventPayload{
		"stage": it.StageID,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// RejectItem sends an item back: bump the rejection counter, move it to
// blocked, drop any claim. One transaction, so the counter and the stage
// never diverge. The guarded update re-checks stage and archival; losing
// that race surfaces as ErrStale.
func (e Engine) RejectItem(ctx context.Context, itemID, agentID, reason string) (domain.Item, error) {
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
	if err := stage.Check(it.StageID, stage.Blocked); err != nil {
		return domain.Item{}, err
	}
	now := e.timestamp()
	ok, err := e.Repo.RejectItemTx(ctx, tx, it.ID, it.StageID, stage.Blocked, now)
	if err != nil {
		return domain.Item{}, err
	}
	if !ok {
		return domain.Item{}, fmt.Errorf("item %s: %w", itemID, ErrStale)
	}
	if err := e.Repo.DeleteClaimTx(ctx, tx, it.ID); err != nil {
		return domain.Item{}, err
	}
	if err := e.Events.Append(ctx, tx, events.ItemRejected, it.ProjectID, "item", it.ID, agentID, events.EventPayload{
		"from": it.StageID, "reason": reason, "rejection_count": it.RejectionCount + 1,
	}); err != nil {
		return domain.Item{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Item{}, err
	}
	return e.Repo.GetItem(ctx, it.ID)
}
