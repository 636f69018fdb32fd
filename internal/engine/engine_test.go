package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crewboard/internal/config"
	"crewboard/internal/db"
	"crewboard/internal/domain"
	"crewboard/internal/engine"
	"crewboard/internal/migrate"
	"crewboard/internal/repo"
	"crewboard/internal/stage"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("proj-1")
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	if _, err := eng.InitProject(ctx, "proj-1", "test", "tester"); err != nil {
		t.Fatalf("init project: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx}
}

func createItem(t *testing.T, env testEnv, title string, opts ...func(*engine.ItemCreateOptions)) domain.Item {
	t.Helper()
	o := engine.ItemCreateOptions{ProjectID: "proj-1", Title: title, AgentID: "tester"}
	for _, f := range opts {
		f(&o)
	}
	it, err := env.Engine.CreateItem(env.Ctx, o)
	if err != nil {
		t.Fatalf("create item %s: %v", title, err)
	}
	return it
}

func moveTo(t *testing.T, env testEnv, itemID string, stages ...string) domain.Item {
	t.Helper()
	var it domain.Item
	var err error
	for _, s := range stages {
		it, err = env.Engine.MoveItem(env.Ctx, itemID, s, "tester")
		if err != nil {
			t.Fatalf("move %s to %s: %v", itemID, s, err)
		}
	}
	return it
}

func TestItemStageTransitions(t *testing.T) {
	env := newTestEnv(t)
	it := createItem(t, env, "pipeline work")
	if it.StageID != stage.Briefings {
		t.Fatalf("new item stage = %s", it.StageID)
	}
	it = moveTo(t, env, it.ID, stage.Ready, stage.Implementing, stage.Review, stage.Done)
	if it.StageID != stage.Done {
		t.Fatalf("stage = %s, want done", it.StageID)
	}
	if it.CompletedAt == "" {
		t.Fatal("expected completed_at set on done")
	}
	// done is terminal
	_, err := env.Engine.MoveItem(env.Ctx, it.ID, stage.Ready, "tester")
	var te stage.TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected transition error, got %v", err)
	}
}

func TestIllegalTransitionRejected(t *testing.T) {
	env := newTestEnv(t)
	it := createItem(t, env, "skip ahead")
	_, err := env.Engine.MoveItem(env.Ctx, it.ID, stage.Done, "tester")
	if err == nil {
		t.Fatal("expected briefings -> done to fail")
	}
	got, err := env.Engine.Repo.GetItem(env.Ctx, it.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.StageID != stage.Briefings {
		t.Fatalf("failed move must not change stage, got %s", got.StageID)
	}
}

func TestClaimReleaseFlow(t *testing.T) {
	env := newTestEnv(t)
	it := createItem(t, env, "claimable")

	// briefings does not accept claims
	_, err := env.Engine.ClaimItem(env.Ctx, it.ID, "agent-a")
	if !errors.Is(err, engine.ErrNotClaimable) {
		t.Fatalf("expected ErrNotClaimable, got %v", err)
	}

	moveTo(t, env, it.ID, stage.Ready)
	c, err := env.Engine.ClaimItem(env.Ctx, it.ID, "agent-a")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if c.Agent != "agent-a" {
		t.Fatalf("claim agent = %s", c.Agent)
	}
	got, _ := env.Engine.Repo.GetItem(env.Ctx, it.ID)
	if got.AssignedAgent != "agent-a" {
		t.Fatalf("assigned_agent = %q", got.AssignedAgent)
	}
	if got.StageID != stage.Ready {
		t.Fatalf("claiming must not move the item, stage = %s", got.StageID)
	}

	// second claim loses
	_, err = env.Engine.ClaimItem(env.Ctx, it.ID, "agent-b")
	if !errors.Is(err, engine.ErrClaimHeld) {
		t.Fatalf("expected ErrClaimHeld, got %v", err)
	}

	// only the holder releases
	if err := env.Engine.ReleaseItem(env.Ctx, it.ID, "agent-b"); !errors.Is(err, engine.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := env.Engine.ReleaseItem(env.Ctx, it.ID, "agent-a"); err != nil {
		t.Fatalf("release: %v", err)
	}
	got, _ = env.Engine.Repo.GetItem(env.Ctx, it.ID)
	if got.AssignedAgent != "" {
		t.Fatalf("assigned_agent not cleared: %q", got.AssignedAgent)
	}

	// releasing without a claim
	if err := env.Engine.ReleaseItem(env.Ctx, it.ID, "agent-a"); !errors.Is(err, engine.ErrNotClaimed) {
		t.Fatalf("expected ErrNotClaimed, got %v", err)
	}
}

func TestConcurrentClaimsSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	it := createItem(t, env, "contested")
	moveTo(t, env, it.ID, stage.Ready)

	const agents = 8
	errs := make([]error, agents)
	var wg sync.WaitGroup
	for i := 0; i < agents; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.Engine.ClaimItem(env.Ctx, it.ID, string(rune('a'+i)))
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range errs {
		if err == nil {
			wins++
			continue
		}
		if !errors.Is(err, engine.ErrClaimHeld) {
			t.Fatalf("agent %d: unexpected error %v", i, err)
		}
	}
	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}
}

func TestRejectItem(t *testing.T) {
	env := newTestEnv(t)
	it := createItem(t, env, "needs rework")
	moveTo(t, env, it.ID, stage.Ready, stage.Implementing, stage.Review)
	if _, err := env.Engine.ClaimItem(env.Ctx, it.ID, "agent-a"); err != nil {
		t.Fatal(err)
	}

	got, err := env.Engine.RejectItem(env.Ctx, it.ID, "reviewer", "tests missing")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.StageID != stage.Blocked {
		t.Fatalf("stage = %s, want blocked", got.StageID)
	}
	if got.RejectionCount != 1 {
		t.Fatalf("rejection_count = %d, want 1", got.RejectionCount)
	}
	if got.AssignedAgent != "" {
		t.Fatal("claim must be dropped on reject")
	}
	if _, err := env.Engine.Repo.GetClaim(env.Ctx, it.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected claim gone, got %v", err)
	}

	// rejecting an already-blocked item is illegal
	_, err = env.Engine.RejectItem(env.Ctx, it.ID, "reviewer", "again")
	var te stage.TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected transition error, got %v", err)
	}
}

func TestRejectDoneItemFails(t *testing.T) {
	env := newTestEnv(t)
	it := createItem(t, env, "shipped")
	moveTo(t, env, it.ID, stage.Ready, stage.Probing, stage.Done)
	if _, err := env.Engine.RejectItem(env.Ctx, it.ID, "reviewer", "too late"); err == nil {
		t.Fatal("expected reject of done item to fail")
	}
	got, _ := env.Engine.Repo.GetItem(env.Ctx, it.ID)
	if got.RejectionCount != 0 {
		t.Fatalf("rejection_count = %d, want 0", got.RejectionCount)
	}
}

func TestRejectArchivedItemFails(t *testing.T) {
	env := newTestEnv(t)
	m, err := env.Engine.CreateMission(env.Ctx, "proj-1", "retired", "", "tester")
	if err != nil {
		t.Fatal(err)
	}
	it := createItem(t, env, "late rework", func(o *engine.ItemCreateOptions) { o.MissionID = m.ID })
	moveTo(t, env, it.ID, stage.Ready, stage.Testing)
	if _, err := env.Engine.ArchiveMission(env.Ctx, m.ID, "tester"); err != nil {
		t.Fatal(err)
	}

	// the archival between read and write must surface as a conflict
	if _, err := env.Engine.RejectItem(env.Ctx, it.ID, "reviewer", "stale work"); !errors.Is(err, engine.ErrArchived) {
		t.Fatalf("expected ErrArchived on reject, got %v", err)
	}
	got, err := env.Engine.Repo.GetItem(env.Ctx, it.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.RejectionCount != 0 {
		t.Fatalf("rejection_count = %d, want 0", got.RejectionCount)
	}
	if got.StageID != stage.Testing {
		t.Fatalf("stage = %s, want unchanged testing", got.StageID)
	}
}

func TestArchiveMission(t *testing.T) {
	env := newTestEnv(t)
	m, err := env.Engine.CreateMission(env.Ctx, "proj-1", "sprint-1", "", "tester")
	if err != nil {
		t.Fatal(err)
	}
	inMission := func(o *engine.ItemCreateOptions) { o.MissionID = m.ID }
	a := createItem(t, env, "first", inMission)
	b := createItem(t, env, "second", inMission)
	loose := createItem(t, env, "unrelated")
	moveTo(t, env, a.ID, stage.Ready)
	if _, err := env.Engine.ClaimItem(env.Ctx, a.ID, "agent-a"); err != nil {
		t.Fatal(err)
	}

	archived, err := env.Engine.ArchiveMission(env.Ctx, m.ID, "tester")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if archived.ArchivedAt == "" || archived.Status != domain.MissionArchived {
		t.Fatalf("mission not archived: %+v", archived)
	}
	for _, id := range []string{a.ID, b.ID} {
		it, _ := env.Engine.Repo.GetItem(env.Ctx, id)
		if it.ArchivedAt == "" {
			t.Fatalf("item %s not archived", id)
		}
	}
	if it, _ := env.Engine.Repo.GetItem(env.Ctx, loose.ID); it.ArchivedAt != "" {
		t.Fatal("item outside mission must not be archived")
	}
	if _, err := env.Engine.Repo.GetClaim(env.Ctx, a.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatal("claims on archived items must be dropped")
	}

	// second archive is a conflict
	if _, err := env.Engine.ArchiveMission(env.Ctx, m.ID, "tester"); !errors.Is(err, engine.ErrArchived) {
		t.Fatalf("expected ErrArchived, got %v", err)
	}

	// archived items take no mutations
	if _, err := env.Engine.MoveItem(env.Ctx, b.ID, stage.Ready, "tester"); !errors.Is(err, engine.ErrArchived) {
		t.Fatalf("expected ErrArchived on move, got %v", err)
	}
	if _, err := env.Engine.ClaimItem(env.Ctx, a.ID, "agent-b"); !errors.Is(err, engine.ErrArchived) {
		t.Fatalf("expected ErrArchived on claim, got %v", err)
	}
}

func TestCompleteMission(t *testing.T) {
	env := newTestEnv(t)
	m, err := env.Engine.CreateMission(env.Ctx, "proj-1", "sprint-2", "", "tester")
	if err != nil {
		t.Fatal(err)
	}
	it := createItem(t, env, "only one", func(o *engine.ItemCreateOptions) { o.MissionID = m.ID })

	if _, err := env.Engine.CompleteMission(env.Ctx, m.ID, "tester"); !errors.Is(err, engine.ErrInvalid) {
		t.Fatalf("expected ErrInvalid with open items, got %v", err)
	}
	moveTo(t, env, it.ID, stage.Ready, stage.Probing, stage.Done)
	done, err := env.Engine.CompleteMission(env.Ctx, m.ID, "tester")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != domain.MissionCompleted || done.CompletedAt == "" {
		t.Fatalf("mission not completed: %+v", done)
	}
}

func TestCheckDependenciesEmptyBoard(t *testing.T) {
	env := newTestEnv(t)
	report, err := env.Engine.CheckDependencies(env.Ctx, "proj-1")
	if err != nil {
		t.Fatal(err)
	}
	if !report.Valid {
		t.Fatalf("empty board must be valid: %+v", report)
	}
	// always arrays, never null
	if report.Cycles == nil || report.ReadyItems == nil || report.BlockedItems == nil {
		t.Fatalf("report slices must be non-nil: %+v", report)
	}
}

func TestCheckDependencies(t *testing.T) {
	env := newTestEnv(t)
	a := createItem(t, env, "base")
	b := createItem(t, env, "depends on base", func(o *engine.ItemCreateOptions) { o.DependsOn = []string{a.ID} })

	report, err := env.Engine.CheckDependencies(env.Ctx, "proj-1")
	if err != nil {
		t.Fatal(err)
	}
	if !report.Valid {
		t.Fatalf("unexpected cycles: %v", report.Cycles)
	}
	if len(report.ReadyItems) != 1 || report.ReadyItems[0] != a.ID {
		t.Fatalf("ready = %v, want [%s]", report.ReadyItems, a.ID)
	}
	if len(report.BlockedItems) != 1 || report.BlockedItems[0] != b.ID {
		t.Fatalf("blocked = %v, want [%s]", report.BlockedItems, b.ID)
	}

	moveTo(t, env, a.ID, stage.Ready, stage.Probing, stage.Done)
	report, err = env.Engine.CheckDependencies(env.Ctx, "proj-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(report.ReadyItems) != 1 || report.ReadyItems[0] != b.ID {
		t.Fatalf("ready after dep done = %v, want [%s]", report.ReadyItems, b.ID)
	}
}

func TestCheckDependenciesReportsCycle(t *testing.T) {
	env := newTestEnv(t)
	a := createItem(t, env, "a", func(o *engine.ItemCreateOptions) { o.ID = "item-a"; o.DependsOn = []string{"item-b"} })
	_ = createItem(t, env, "b", func(o *engine.ItemCreateOptions) { o.ID = "item-b"; o.DependsOn = []string{a.ID} })

	report, err := env.Engine.CheckDependencies(env.Ctx, "proj-1")
	if err != nil {
		t.Fatal(err)
	}
	if report.Valid || len(report.Cycles) != 1 {
		t.Fatalf("expected one cycle, got %+v", report)
	}
	cycle := report.Cycles[0]
	if len(cycle) != 3 || cycle[0] != cycle[len(cycle)-1] {
		t.Fatalf("cycle must be a closed walk, got %v", cycle)
	}
}

func TestEventAppendOnStateChanges(t *testing.T) {
	env := newTestEnv(t)
	it := createItem(t, env, "evented")
	moveTo(t, env, it.ID, stage.Ready)
	if _, err := env.Engine.ClaimItem(env.Ctx, it.ID, "agent-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.RejectItem(env.Ctx, it.ID, "reviewer", "nope"); err != nil {
		t.Fatal(err)
	}
	rows, err := env.Engine.DB.QueryContext(env.Ctx, `SELECT type FROM events WHERE entity_id=? ORDER BY id`, it.ID)
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	defer rows.Close()
	var types []string
	for rows.Next() {
		var typ string
		rows.Scan(&typ)
		types = append(types, typ)
	}
	want := []string{"item.created", "item.moved", "item.claimed", "item.rejected"}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event[%d] = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestNextItemPrefersPriority(t *testing.T) {
	env := newTestEnv(t)
	low := createItem(t, env, "low", func(o *engine.ItemCreateOptions) { o.Priority = 1 })
	high := createItem(t, env, "high", func(o *engine.ItemCreateOptions) { o.Priority = 5 })
	moveTo(t, env, low.ID, stage.Ready)
	moveTo(t, env, high.ID, stage.Ready)

	id, ok, err := env.Engine.NextItem(env.Ctx, "proj-1")
	if err != nil || !ok {
		t.Fatalf("next: %v ok=%v", err, ok)
	}
	if id != high.ID {
		t.Fatalf("next = %s, want %s", id, high.ID)
	}
}
