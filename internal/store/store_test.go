package store_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"bountyline/internal/db"
	"bountyline/internal/domain"
	"bountyline/internal/migrate"
	"bountyline/internal/store"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func seedSponsor(t *testing.T, s store.Sponsors, wallet string) domain.Sponsor {
	t.Helper()
	sp := domain.Sponsor{
		WalletAddress: wallet,
		Name:          "Acme",
		PasswordHash:  "x",
		CreatedAt:     "2026-01-01T00:00:00Z",
		UpdatedAt:     "2026-01-01T00:00:00Z",
	}
	if err := s.Insert(context.Background(), sp); err != nil {
		t.Fatalf("insert sponsor: %v", err)
	}
	return sp
}

func TestSponsorDuplicateKey(t *testing.T) {
	s := store.Sponsors{DB: newTestDB(t)}
	seedSponsor(t, s, "0xabc")
	err := s.Insert(context.Background(), domain.Sponsor{
		WalletAddress: "0xabc",
		PasswordHash:  "y",
		CreatedAt:     "2026-01-01T00:00:00Z",
		UpdatedAt:     "2026-01-01T00:00:00Z",
	})
	if !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestSponsorNotFound(t *testing.T) {
	s := store.Sponsors{DB: newTestDB(t)}
	if _, err := s.Get(context.Background(), "0xnone"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err := s.Update(context.Background(), "0xnone", store.SponsorPatch{Name: strPtr("x")}, "2026-01-01T00:00:00Z")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func TestTaskIDSetOps(t *testing.T) {
	ctx := context.Background()
	s := store.Sponsors{DB: newTestDB(t)}
	seedSponsor(t, s, "0xabc")

	// adding the same id twice leaves a single entry
	for i := 0; i < 2; i++ {
		if err := s.AddTaskID(ctx, "0xabc", "task_1"); err != nil {
			t.Fatalf("add task id: %v", err)
		}
	}
	if err := s.AddTaskID(ctx, "0xabc", "task_2"); err != nil {
		t.Fatalf("add task id: %v", err)
	}
	ids, err := s.TaskIDs(ctx, "0xabc")
	if err != nil {
		t.Fatalf("task ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 task ids, got %v", ids)
	}

	// removal is keyed and absent entries are a no-op
	if err := s.RemoveTaskID(ctx, "0xabc", "task_1"); err != nil {
		t.Fatalf("remove task id: %v", err)
	}
	if err := s.RemoveTaskID(ctx, "0xabc", "task_gone"); err != nil {
		t.Fatalf("remove absent id should be a no-op: %v", err)
	}
	ids, _ = s.TaskIDs(ctx, "0xabc")
	if len(ids) != 1 || ids[0] != "task_2" {
		t.Fatalf("expected [task_2], got %v", ids)
	}
}

func TestSponsorDeleteReturnsEntity(t *testing.T) {
	ctx := context.Background()
	s := store.Sponsors{DB: newTestDB(t)}
	seedSponsor(t, s, "0xabc")
	if err := s.AddTaskID(ctx, "0xabc", "task_1"); err != nil {
		t.Fatal(err)
	}
	sp, err := s.Delete(ctx, "0xabc")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if sp.WalletAddress != "0xabc" || len(sp.TaskIDs) != 1 {
		t.Fatalf("expected deleted sponsor with task ids, got %+v", sp)
	}
	if _, err := s.Get(ctx, "0xabc"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := s.Delete(ctx, "0xabc"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestSponsorPatchIsPartial(t *testing.T) {
	ctx := context.Background()
	s := store.Sponsors{DB: newTestDB(t)}
	seedSponsor(t, s, "0xabc")
	sp, err := s.Update(ctx, "0xabc", store.SponsorPatch{Bio: strPtr("building things")}, "2026-01-02T00:00:00Z")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if sp.Bio != "building things" {
		t.Fatalf("bio not updated: %+v", sp)
	}
	if sp.Name != "Acme" {
		t.Fatalf("name should be untouched: %+v", sp)
	}
	if sp.UpdatedAt != "2026-01-02T00:00:00Z" {
		t.Fatalf("updated_at not set: %+v", sp)
	}
}

func TestTaskFiltersAndSubmissionSet(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	sponsors := store.Sponsors{DB: conn}
	tasks := store.Tasks{DB: conn}
	seedSponsor(t, sponsors, "0xabc")
	seedSponsor(t, sponsors, "0xdef")

	insertTask := func(id, sponsor, status string) {
		t.Helper()
		err := tasks.Insert(ctx, domain.Task{
			ID:        id,
			SponsorID: sponsor,
			Title:     "t",
			Status:    status,
			CreatedAt: "2026-01-01T00:00:00Z",
			UpdatedAt: "2026-01-01T00:00:00Z",
		})
		if err != nil {
			t.Fatalf("insert task %s: %v", id, err)
		}
	}
	insertTask("task_1", "0xabc", domain.TaskOpen)
	insertTask("task_2", "0xabc", domain.TaskCompleted)
	insertTask("task_3", "0xdef", domain.TaskOpen)

	open, err := tasks.List(ctx, store.TaskFilters{Status: domain.TaskOpen})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 open tasks, got %d", len(open))
	}
	mine, err := tasks.List(ctx, store.TaskFilters{SponsorID: "0xabc", Status: domain.TaskOpen})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != "task_1" {
		t.Fatalf("expected [task_1], got %+v", mine)
	}

	if err := tasks.AddSubmissionID(ctx, "task_1", "sub_1"); err != nil {
		t.Fatal(err)
	}
	if err := tasks.AddSubmissionID(ctx, "task_1", "sub_1"); err != nil {
		t.Fatal(err)
	}
	got, err := tasks.Get(ctx, "task_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Submissions) != 1 {
		t.Fatalf("expected one submission id, got %v", got.Submissions)
	}
}

func TestSubmissionRatingAndFeedback(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	subs := store.Submissions{DB: conn}
	err := subs.Insert(ctx, domain.Submission{
		ID:            "sub_1",
		TaskID:        "task_1",
		WalletAddress: "0xwork",
		Status:        domain.SubmissionPending,
		CreatedAt:     "2026-01-01T00:00:00Z",
		UpdatedAt:     "2026-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := subs.Get(ctx, "sub_1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Rating != nil || got.Feedback != nil {
		t.Fatalf("expected nil rating and feedback, got %+v", got)
	}

	rating := 4
	status := domain.SubmissionAccepted
	accepted := true
	feedback := "solid work"
	got, err = subs.Update(ctx, "sub_1", store.SubmissionPatch{
		Status:     &status,
		IsAccepted: &accepted,
		Rating:     &rating,
		Feedback:   &feedback,
	}, "2026-01-02T00:00:00Z")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Rating == nil || *got.Rating != 4 || got.Feedback == nil || *got.Feedback != "solid work" {
		t.Fatalf("review fields not persisted: %+v", got)
	}
	if !got.IsAccepted || got.Status != domain.SubmissionAccepted {
		t.Fatalf("expected accepted submission, got %+v", got)
	}

	deleted, err := subs.Delete(ctx, "sub_1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.ID != "sub_1" || deleted.Rating == nil {
		t.Fatalf("delete should return the document, got %+v", deleted)
	}
}

func TestContributorSkillsReplace(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	contributors := store.Contributors{DB: conn}
	err := contributors.Insert(ctx, domain.Contributor{
		Email:        "alice@example.com",
		PasswordHash: "x",
		CreatedAt:    "2026-01-01T00:00:00Z",
		UpdatedAt:    "2026-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	c, err := contributors.Update(ctx, "alice@example.com", store.ContributorPatch{
		SkillsSet: true,
		Skills: []domain.ContributorSkill{
			{SkillID: "skill_go", Level: "expert"},
			{SkillID: "skill_sql", Level: "beginner"},
		},
	}, "2026-01-02T00:00:00Z")
	if err != nil {
		t.Fatalf("update skills: %v", err)
	}
	if len(c.Skills) != 2 {
		t.Fatalf("expected 2 skills, got %+v", c.Skills)
	}
	// setting again replaces, never merges
	c, err = contributors.Update(ctx, "alice@example.com", store.ContributorPatch{
		SkillsSet: true,
		Skills:    []domain.ContributorSkill{{SkillID: "skill_go", Level: "expert"}},
	}, "2026-01-03T00:00:00Z")
	if err != nil {
		t.Fatalf("replace skills: %v", err)
	}
	if len(c.Skills) != 1 || c.Skills[0].SkillID != "skill_go" {
		t.Fatalf("expected skill list replaced, got %+v", c.Skills)
	}
}

func TestSkillUniqueName(t *testing.T) {
	ctx := context.Background()
	skills := store.Skills{DB: newTestDB(t)}
	if err := skills.Insert(ctx, domain.Skill{ID: "skill_1", Name: "go", CreatedAt: "2026-01-01T00:00:00Z"}); err != nil {
		t.Fatal(err)
	}
	err := skills.Insert(ctx, domain.Skill{ID: "skill_2", Name: "go", CreatedAt: "2026-01-01T00:00:00Z"})
	if !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey for duplicate name, got %v", err)
	}
	sk, err := skills.GetByName(ctx, "go")
	if err != nil || sk.ID != "skill_1" {
		t.Fatalf("get by name: %v %+v", err, sk)
	}
}

func strPtr(s string) *string { return &s }
