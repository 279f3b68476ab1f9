package store_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/acordova/formbox/config"
	"github.com/acordova/formbox/database"
	"github.com/acordova/formbox/model"
	"github.com/acordova/formbox/store"
)

var dbSeq int64

// newTestStore opens a migrated in-memory database with one seeded owner.
func newTestStore(t *testing.T) (*store.Store, *sql.DB, int) {
	t.Helper()

	url := fmt.Sprintf("file:store_test_%d?mode=memory&cache=shared&_foreign_keys=on",
		atomic.AddInt64(&dbSeq, 1))
	db, err := database.Open(config.Config{DBUrl: url})
	if err != nil {
		t.Fatalf("open db: %s", err)
	}
	t.Cleanup(func() { db.Close() })

	res, err := db.Exec(
		`INSERT INTO user (username, password_hash) VALUES (?, ?)`,
		"admin", "$2a$10$unused")
	if err != nil {
		t.Fatalf("seed user: %s", err)
	}
	ownerID, _ := res.LastInsertId()

	return store.New(db), db, int(ownerID)
}

func floatPtr(n float64) *float64 { return &n }

func testForm(ownerID int) *model.Form {
	return &model.Form{
		Title:          "Encuesta de prueba",
		Status:         model.FormPublished,
		OwnerID:        ownerID,
		IsPublic:       true,
		AllowAnonymous: true,
		Settings:       model.FormSettings{Language: "es"},
		Questions: []model.Question{
			{
				Type: model.TypeSelectOne, Label: "Color", Required: true, Order: 1,
				Options: []model.Option{{Value: "rojo", Label: "Rojo"}, {Value: "azul", Label: "Azul"}},
			},
			{
				Type: model.TypeInteger, Label: "Edad", Order: 2,
				MinValue: floatPtr(0), MaxValue: floatPtr(120),
			},
		},
	}
}

func putSubmission(t *testing.T, s *store.Store, formID int, instanceID string, answers []model.Answer) *model.Submission {
	t.Helper()
	sub := &model.Submission{
		FormID:     formID,
		InstanceID: instanceID,
		Status:     model.SubmissionCompleted,
		StartedAt:  time.Now().UTC(),
		Answers:    answers,
	}
	if err := s.Put(context.Background(), sub); err != nil {
		t.Fatalf("put submission: %s", err)
	}
	return sub
}

func TestCreateAndGetForm(t *testing.T) {
	s, _, owner := newTestStore(t)
	ctx := context.Background()

	form := testForm(owner)
	if err := s.CreateForm(ctx, form); err != nil {
		t.Fatalf("create form: %s", err)
	}
	if form.ID == 0 || form.Version != 1 {
		t.Errorf("ids not filled in: id=%d version=%d", form.ID, form.Version)
	}
	for _, q := range form.Questions {
		if q.ID == 0 || q.FormID != form.ID {
			t.Errorf("question ids not filled in: %+v", q)
		}
	}

	loaded, err := s.GetForm(ctx, form.ID)
	if err != nil {
		t.Fatalf("get form: %s", err)
	}
	if loaded.Title != form.Title || loaded.OwnerID != owner || !loaded.IsPublic {
		t.Errorf("form fields lost: %+v", loaded)
	}
	if loaded.Settings.Language != "es" {
		t.Errorf("settings lost: %+v", loaded.Settings)
	}
	if len(loaded.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(loaded.Questions))
	}
	first := loaded.Questions[0]
	if first.Label != "Color" || len(first.Options) != 2 || first.Options[0].Value != "rojo" {
		t.Errorf("question options lost: %+v", first)
	}
	second := loaded.Questions[1]
	if second.MinValue == nil || *second.MaxValue != 120 {
		t.Errorf("numeric bounds lost: %+v", second)
	}

	t.Run("missing form", func(t *testing.T) {
		_, err := s.GetForm(ctx, 9999)
		var notFound *store.NotFoundError
		if !errors.As(err, &notFound) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
	})
}

func TestUpdateFormVersioning(t *testing.T) {
	s, _, owner := newTestStore(t)
	ctx := context.Background()

	form := testForm(owner)
	if err := s.CreateForm(ctx, form); err != nil {
		t.Fatal(err)
	}

	form.Title = "Actualizada"
	if err := s.UpdateForm(ctx, form); err != nil {
		t.Fatalf("update: %s", err)
	}
	if form.Version != 2 {
		t.Errorf("version not bumped: %d", form.Version)
	}

	t.Run("stale version conflicts", func(t *testing.T) {
		stale := *form
		stale.Version = 1
		err := s.UpdateForm(ctx, &stale)
		if !errors.Is(err, store.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("missing form is not a conflict", func(t *testing.T) {
		ghost := *form
		ghost.ID = 9999
		err := s.UpdateForm(ctx, &ghost)
		var notFound *store.NotFoundError
		if !errors.As(err, &notFound) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
	})
}

func TestPutSubmissionAtomicity(t *testing.T) {
	s, db, owner := newTestStore(t)
	ctx := context.Background()

	form := testForm(owner)
	if err := s.CreateForm(ctx, form); err != nil {
		t.Fatal(err)
	}

	sub := &model.Submission{
		FormID:     form.ID,
		InstanceID: "inst-1",
		Status:     model.SubmissionCompleted,
		StartedAt:  time.Now().UTC(),
		Answers: []model.Answer{
			{QuestionID: form.Questions[0].ID, Value: model.TextValue("rojo")},
			{QuestionID: 424242, Value: model.TextValue("boom")}, // violates answer FK
		},
	}
	if err := s.Put(ctx, sub); err == nil {
		t.Fatal("expected foreign key failure")
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM submission`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("failed submission left %d rows behind", count)
	}
}

func TestSubmissionRoundTrip(t *testing.T) {
	s, _, owner := newTestStore(t)
	ctx := context.Background()

	form := testForm(owner)
	if err := s.CreateForm(ctx, form); err != nil {
		t.Fatal(err)
	}
	colorID := form.Questions[0].ID
	ageID := form.Questions[1].ID

	putSubmission(t, s, form.ID, "inst-1", []model.Answer{
		{QuestionID: colorID, Value: model.TextValue("rojo")},
		{QuestionID: ageID, Value: model.NumberValue(0)},
	})
	putSubmission(t, s, form.ID, "inst-2", []model.Answer{
		{QuestionID: colorID, Value: model.TextValue("")},
	})

	subs, err := s.ListSubmissions(ctx, form.ID, store.SubmissionFilter{Ascending: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(subs))
	}

	first := subs[0]
	if first.InstanceID != "inst-1" || len(first.Answers) != 2 {
		t.Fatalf("first submission wrong: %+v", first)
	}
	// 0 and "" must survive storage as present values
	age := first.Answers[1]
	if age.Value.Kind() != model.ValueNumber || age.Value.Number() != 0 {
		t.Errorf("numeric zero lost: %+v", age.Value)
	}
	empty := subs[1].Answers[0]
	if empty.Value.Kind() != model.ValueText || empty.Value.Text() != "" {
		t.Errorf("empty text lost: %+v", empty.Value)
	}

	t.Run("descending by default", func(t *testing.T) {
		subs, err := s.ListSubmissions(ctx, form.ID, store.SubmissionFilter{})
		if err != nil {
			t.Fatal(err)
		}
		if subs[0].InstanceID != "inst-2" {
			t.Errorf("expected newest first, got %s", subs[0].InstanceID)
		}
	})

	t.Run("duplicate instance rejected by schema", func(t *testing.T) {
		sub := &model.Submission{
			FormID: form.ID, InstanceID: "inst-1",
			Status: model.SubmissionCompleted, StartedAt: time.Now().UTC(),
		}
		if err := s.Put(ctx, sub); err == nil {
			t.Error("expected unique violation")
		}
	})

	t.Run("count and instance lookup", func(t *testing.T) {
		count, err := s.CountSubmissions(ctx, form.ID)
		if err != nil || count != 2 {
			t.Errorf("count: %d, %v", count, err)
		}
		seen, err := s.HasInstance(ctx, form.ID, "inst-1")
		if err != nil || !seen {
			t.Errorf("known instance: %v, %v", seen, err)
		}
		seen, err = s.HasInstance(ctx, form.ID, "inst-999")
		if err != nil || seen {
			t.Errorf("unknown instance: %v, %v", seen, err)
		}
	})
}

func TestDeleteFormCascades(t *testing.T) {
	s, db, owner := newTestStore(t)
	ctx := context.Background()

	form := testForm(owner)
	if err := s.CreateForm(ctx, form); err != nil {
		t.Fatal(err)
	}
	putSubmission(t, s, form.ID, "inst-1", []model.Answer{
		{QuestionID: form.Questions[0].ID, Value: model.TextValue("rojo")},
	})

	if err := s.DeleteForm(ctx, form.ID, owner); err != nil {
		t.Fatalf("delete form: %s", err)
	}

	for _, table := range []string{"question", "submission", "answer"} {
		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatal(err)
		}
		if count != 0 {
			t.Errorf("%s rows survived the cascade: %d", table, count)
		}
	}

	t.Run("foreign owner cannot delete", func(t *testing.T) {
		form := testForm(owner)
		if err := s.CreateForm(ctx, form); err != nil {
			t.Fatal(err)
		}
		err := s.DeleteForm(ctx, form.ID, owner+1)
		var notFound *store.NotFoundError
		if !errors.As(err, &notFound) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
	})
}

func TestDuplicateForm(t *testing.T) {
	s, _, owner := newTestStore(t)
	ctx := context.Background()

	form := testForm(owner)
	if err := s.CreateForm(ctx, form); err != nil {
		t.Fatal(err)
	}

	dup, err := s.DuplicateForm(ctx, form.ID, owner)
	if err != nil {
		t.Fatalf("duplicate: %s", err)
	}
	if dup.ID == form.ID {
		t.Error("duplicate shares the original id")
	}
	if dup.Title != "Encuesta de prueba (Copia)" {
		t.Errorf("title: %q", dup.Title)
	}
	if dup.Status != model.FormDraft || dup.IsPublic {
		t.Errorf("duplicate should be a private draft: %+v", dup)
	}
	if len(dup.Questions) != len(form.Questions) {
		t.Fatalf("questions not copied: %d", len(dup.Questions))
	}
	for i, q := range dup.Questions {
		if q.ID == form.Questions[i].ID {
			t.Error("duplicate question shares the original id")
		}
	}
}

func TestQuestionLifecycle(t *testing.T) {
	s, _, owner := newTestStore(t)
	ctx := context.Background()

	form := testForm(owner)
	if err := s.CreateForm(ctx, form); err != nil {
		t.Fatal(err)
	}

	q := &model.Question{
		FormID: form.ID, Type: model.TypeText, Label: "Comentario", Order: 3,
	}
	if err := s.AddQuestion(ctx, owner, q); err != nil {
		t.Fatalf("add question: %s", err)
	}
	if q.ID == 0 {
		t.Fatal("question id not filled in")
	}

	q.Label = "Observaciones"
	q.SkipLogic = &model.SkipLogic{
		Condition: "q1 == 'rojo'", TargetQuestionID: q.ID, Action: model.ActionShow,
	}
	if err := s.UpdateQuestion(ctx, owner, q); err != nil {
		t.Fatalf("update question: %s", err)
	}

	if err := s.ReorderQuestions(ctx, owner, form.ID, []store.QuestionOrder{
		{ID: q.ID, Order: 0},
	}); err != nil {
		t.Fatalf("reorder: %s", err)
	}

	loaded, err := s.GetForm(ctx, form.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Questions[0].ID != q.ID || loaded.Questions[0].Label != "Observaciones" {
		t.Errorf("reorder or update lost: %+v", loaded.Questions[0])
	}
	if loaded.Questions[0].SkipLogic == nil {
		t.Error("skip logic lost in storage")
	}

	if err := s.DeleteQuestion(ctx, owner, form.ID, q.ID); err != nil {
		t.Fatalf("delete question: %s", err)
	}

	t.Run("foreign owner denied", func(t *testing.T) {
		q := &model.Question{FormID: form.ID, Type: model.TypeText, Label: "X"}
		err := s.AddQuestion(ctx, owner+1, q)
		var notFound *store.NotFoundError
		if !errors.As(err, &notFound) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
	})
}

func TestOwnerScopedSubmissionAccess(t *testing.T) {
	s, _, owner := newTestStore(t)
	ctx := context.Background()

	form := testForm(owner)
	if err := s.CreateForm(ctx, form); err != nil {
		t.Fatal(err)
	}
	sub := putSubmission(t, s, form.ID, "inst-1", nil)

	if _, err := s.GetSubmission(ctx, sub.ID, owner); err != nil {
		t.Errorf("owner access: %v", err)
	}
	if _, err := s.GetSubmission(ctx, sub.ID, owner+1); err == nil {
		t.Error("foreign owner read a submission")
	}
	if err := s.DeleteSubmission(ctx, sub.ID, owner+1); err == nil {
		t.Error("foreign owner deleted a submission")
	}
	if err := s.DeleteSubmission(ctx, sub.ID, owner); err != nil {
		t.Errorf("owner delete: %v", err)
	}
}

func TestComputeStatistics(t *testing.T) {
	s, db, owner := newTestStore(t)
	ctx := context.Background()

	form := testForm(owner)
	if err := s.CreateForm(ctx, form); err != nil {
		t.Fatal(err)
	}

	// Wednesday 2026-06-10; week starts Monday 2026-06-08
	now := time.Date(2026, 6, 10, 15, 0, 0, 0, time.UTC)
	backdate := func(instanceID string, createdAt time.Time, duration int) {
		sub := putSubmission(t, s, form.ID, instanceID, nil)
		_, err := db.Exec(
			`UPDATE submission SET created_at = ?, duration_seconds = ? WHERE id = ?`,
			createdAt, duration, sub.ID)
		if err != nil {
			t.Fatal(err)
		}
	}

	backdate("today", now.Add(-time.Hour), 60)
	backdate("this-week", now.AddDate(0, 0, -2), 120)
	backdate("this-month", now.AddDate(0, 0, -9), 180)
	backdate("last-month", now.AddDate(0, -1, -2), 240)

	stats, err := s.ComputeStatistics(ctx, form.ID, now, time.Monday)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalSubmissions != 4 {
		t.Errorf("total: %d", stats.TotalSubmissions)
	}
	if stats.SubmissionsToday != 1 {
		t.Errorf("today: %d", stats.SubmissionsToday)
	}
	if stats.SubmissionsThisWeek != 2 {
		t.Errorf("this week: %d", stats.SubmissionsThisWeek)
	}
	if stats.SubmissionsThisMonth != 3 {
		t.Errorf("this month: %d", stats.SubmissionsThisMonth)
	}
	if stats.AverageDuration == nil || *stats.AverageDuration != 150 {
		t.Errorf("average duration: %v", stats.AverageDuration)
	}

	t.Run("sunday week start shifts the window", func(t *testing.T) {
		stats, err := s.ComputeStatistics(ctx, form.ID, now, time.Sunday)
		if err != nil {
			t.Fatal(err)
		}
		// Sunday 2026-06-07 opens the week, so the Monday submission still counts
		if stats.SubmissionsThisWeek != 2 {
			t.Errorf("this week from sunday: %d", stats.SubmissionsThisWeek)
		}
	})
}

func TestUserIDByUsername(t *testing.T) {
	s, _, owner := newTestStore(t)
	ctx := context.Background()

	id, err := s.UserIDByUsername(ctx, "admin")
	if err != nil || id != owner {
		t.Errorf("lookup: %d, %v", id, err)
	}

	_, err = s.UserIDByUsername(ctx, "nobody")
	var notFound *store.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}
