package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/korjavin/topicquizbot/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(context.Background(), Options{Driver: DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleQuestion(userID int64, createdAt time.Time) *models.Question {
	return &models.Question{
		UserID:         userID,
		Kind:           models.KindMulti,
		Text:           "Pick the primes",
		Options:        []string{"2", "3", "4"},
		CorrectAnswers: []string{"2", "3"},
		Explanation:    "4 is 2*2",
		Topic:          "Math",
		CreatedAt:      createdAt,
		ExpiresAt:      createdAt.Add(30 * 24 * time.Hour),
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestQuestionRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	now := time.Date(2024, 10, 18, 9, 0, 0, 0, time.UTC)

	q := sampleQuestion(42, now)
	if err := db.CreateQuestion(ctx, q); err != nil {
		t.Fatalf("create: %v", err)
	}
	if q.ID == 0 {
		t.Fatalf("expected id to be assigned")
	}

	got, err := db.GetQuestion(ctx, q.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Kind != models.KindMulti || len(got.Options) != 3 || len(got.CorrectAnswers) != 2 {
		t.Fatalf("unexpected question: %+v", got)
	}
	if !got.ExpiresAt.Equal(now.Add(30 * 24 * time.Hour)) {
		t.Fatalf("expires_at = %v", got.ExpiresAt)
	}

	if _, err := db.GetQuestion(ctx, q.ID+100); !errors.Is(err, models.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestHasQuestionSince(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	now := time.Date(2024, 10, 18, 9, 0, 0, 0, time.UTC)

	if err := db.CreateQuestion(ctx, sampleQuestion(1, now.Add(-30*time.Hour))); err != nil {
		t.Fatalf("create: %v", err)
	}

	recent, err := db.HasQuestionSince(ctx, 1, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("has since: %v", err)
	}
	if recent {
		t.Fatalf("30h old question must not count as recent")
	}

	if err := db.CreateQuestion(ctx, sampleQuestion(1, now.Add(-time.Hour))); err != nil {
		t.Fatalf("create: %v", err)
	}
	recent, err = db.HasQuestionSince(ctx, 1, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("has since: %v", err)
	}
	if !recent {
		t.Fatalf("expected recent question")
	}

	other, err := db.HasQuestionSince(ctx, 2, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("has since: %v", err)
	}
	if other {
		t.Fatalf("questions of another user must not count")
	}
}

func TestDeleteExpiredQuestions(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	now := time.Date(2024, 10, 18, 2, 0, 0, 0, time.UTC)

	expired := sampleQuestion(1, now.Add(-31*24*time.Hour))
	boundary := sampleQuestion(1, now.Add(-30*24*time.Hour)) // expires exactly now
	fresh := sampleQuestion(1, now.Add(-time.Hour))
	for _, q := range []*models.Question{expired, boundary, fresh} {
		if err := db.CreateQuestion(ctx, q); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	n, err := db.DeleteExpiredQuestions(ctx, now)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}
	if _, err := db.GetQuestion(ctx, fresh.ID); err != nil {
		t.Fatalf("fresh question must survive: %v", err)
	}
	for _, q := range []*models.Question{expired, boundary} {
		if _, err := db.GetQuestion(ctx, q.ID); !errors.Is(err, models.ErrQuestionNotFound) {
			t.Fatalf("question %d should be gone, got %v", q.ID, err)
		}
	}
}

func TestRecentAnswersNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	now := time.Date(2024, 10, 18, 9, 0, 0, 0, time.UTC)

	q := sampleQuestion(7, now)
	if err := db.CreateQuestion(ctx, q); err != nil {
		t.Fatalf("create question: %v", err)
	}
	for i := 0; i < 12; i++ {
		a := &models.Answer{
			UserID:     7,
			QuestionID: q.ID,
			Values:     []string{"2"},
			IsCorrect:  i%2 == 0,
			CreatedAt:  now.Add(time.Duration(i) * time.Minute),
		}
		if err := db.CreateAnswer(ctx, a); err != nil {
			t.Fatalf("create answer: %v", err)
		}
	}

	answers, err := db.RecentAnswers(ctx, 7, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(answers) != 10 {
		t.Fatalf("expected 10 answers, got %d", len(answers))
	}
	if !answers[0].CreatedAt.Equal(now.Add(11 * time.Minute)) {
		t.Fatalf("expected newest first, got %v", answers[0].CreatedAt)
	}
	if answers[0].Question == nil || answers[0].Question.Text != q.Text {
		t.Fatalf("expected joined question, got %+v", answers[0].Question)
	}

	correct, incorrect, err := db.GetUserStats(ctx, 7)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if correct != 6 || incorrect != 6 {
		t.Fatalf("expected 6/6, got %d/%d", correct, incorrect)
	}
}

func TestDueChains(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	now := time.Date(2024, 10, 18, 9, 0, 0, 0, time.UTC)
	qid := int64(5)

	due := &models.MessageChain{UserID: 1, QuestionID: &qid, MessageIDs: []int{10, 11}, CreatedAt: now.Add(-time.Minute), DeleteAt: now.Add(-time.Second)}
	later := &models.MessageChain{UserID: 1, MessageIDs: []int{12}, CreatedAt: now, DeleteAt: now.Add(time.Minute)}
	for _, c := range []*models.MessageChain{due, later} {
		if err := db.CreateChain(ctx, c); err != nil {
			t.Fatalf("create chain: %v", err)
		}
	}

	chains, err := db.DueChains(ctx, now)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(chains) != 1 || chains[0].ID != due.ID {
		t.Fatalf("expected only the due chain, got %+v", chains)
	}
	if len(chains[0].MessageIDs) != 2 || chains[0].QuestionID == nil || *chains[0].QuestionID != qid {
		t.Fatalf("chain not decoded: %+v", chains[0])
	}

	if err := db.DeleteChain(ctx, due.ID); err != nil {
		t.Fatalf("delete chain: %v", err)
	}
	chains, err = db.DueChains(ctx, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(chains) != 1 || chains[0].ID != later.ID {
		t.Fatalf("expected only the later chain, got %+v", chains)
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	now := time.Date(2024, 10, 18, 9, 0, 0, 0, time.UTC)

	if _, err := db.GetUser(ctx, 100); !errors.Is(err, models.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	users := []*models.User{
		{TelegramID: 100, Topic: "JavaScript", Frequency: models.FrequencyDaily, IsActive: true},
		{TelegramID: 101, Topic: "", Frequency: models.FrequencyDaily, IsActive: true},
		{TelegramID: 102, Topic: "Python", Frequency: models.FrequencyDaily, IsActive: false},
		{TelegramID: 103, Topic: "Python", Frequency: models.FrequencyWeekly, IsActive: true},
	}
	for _, u := range users {
		u.CreatedAt, u.UpdatedAt = now, now
		if err := db.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	subs, err := db.ActiveSubscribers(ctx, models.FrequencyDaily)
	if err != nil {
		t.Fatalf("subscribers: %v", err)
	}
	if len(subs) != 1 || subs[0].TelegramID != 100 {
		t.Fatalf("expected only user 100, got %+v", subs)
	}

	u := users[1]
	u.Topic = "Физика"
	u.UpdatedAt = now.Add(time.Hour)
	if err := db.UpdateUser(ctx, u); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := db.GetUser(ctx, 101)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Topic != "Физика" {
		t.Fatalf("topic not saved: %+v", got)
	}

	if err := db.UpdateUser(ctx, &models.User{TelegramID: 999}); !errors.Is(err, models.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unknown user, got %v", err)
	}
}
