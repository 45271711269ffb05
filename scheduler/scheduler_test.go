package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/korjavin/topicquizbot/database"
	"github.com/korjavin/topicquizbot/models"
)

type fakePusher struct {
	pushed []int64
	fail   map[int64]bool
}

func (p *fakePusher) Push(_ context.Context, u *models.User) (*models.Question, error) {
	p.pushed = append(p.pushed, u.TelegramID)
	if p.fail[u.TelegramID] {
		return nil, errors.New("bot was blocked by the user")
	}
	return &models.Question{UserID: u.TelegramID}, nil
}

type fakeSweeper struct{ calls int }

func (s *fakeSweeper) SweepQuestions(context.Context) (int64, error) {
	s.calls++
	return 0, nil
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(context.Background(), database.Options{Driver: database.DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func addUser(t *testing.T, db *database.DB, id int64, topic string, freq models.Frequency, active bool) {
	t.Helper()
	now := time.Now()
	u := &models.User{
		TelegramID: id,
		Topic:      topic,
		Frequency:  freq,
		IsActive:   active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %d: %v", id, err)
	}
}

func TestFanOut(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	addUser(t, db, 1, "JavaScript", models.FrequencyDaily, true)
	addUser(t, db, 2, "Python", models.FrequencyDaily, true)  // got a question an hour ago
	addUser(t, db, 3, "Физика", models.FrequencyDaily, true)  // push fails
	addUser(t, db, 4, "История", models.FrequencyDaily, true) // still served after the failure
	addUser(t, db, 5, "Химия", models.FrequencyWeekly, true)
	addUser(t, db, 6, "Химия", models.FrequencyDaily, false)
	addUser(t, db, 7, "", models.FrequencyDaily, true)

	recent := models.NewQuestion(2, models.GeneratedQuestion{
		Kind:           models.KindText,
		Text:           "print?",
		CorrectAnswers: []string{"print"},
		Explanation:    "print",
		Topic:          "Python",
	}, now.Add(-time.Hour), 30*24*time.Hour)
	if err := db.CreateQuestion(ctx, recent); err != nil {
		t.Fatalf("create question: %v", err)
	}

	pusher := &fakePusher{fail: map[int64]bool{3: true}}
	s, err := New(db, pusher, &fakeSweeper{}, Config{Delay: time.Millisecond})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	rep, err := s.FanOut(ctx, models.FrequencyDaily)
	if err != nil {
		t.Fatalf("fan-out: %v", err)
	}

	want := Report{Users: 4, Sent: 2, Skipped: 1, Failed: 1}
	if rep != want {
		t.Fatalf("report = %+v, want %+v", rep, want)
	}
	if len(pusher.pushed) != 3 {
		t.Fatalf("pushed = %v, want users 1, 3, 4", pusher.pushed)
	}
	for _, id := range pusher.pushed {
		if id == 2 {
			t.Fatalf("user with a recent question was pushed again")
		}
	}
}

func TestFanOutPacesUsers(t *testing.T) {
	db := newTestDB(t)
	for id := int64(1); id <= 3; id++ {
		addUser(t, db, id, "JavaScript", models.FrequencyWeekly, true)
	}

	s, err := New(db, &fakePusher{}, &fakeSweeper{}, Config{Delay: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	start := time.Now()
	if _, err := s.FanOut(context.Background(), models.FrequencyWeekly); err != nil {
		t.Fatalf("fan-out: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Fatalf("three pushes took %v, want at least two delays", elapsed)
	}
}

func TestFanOutStopsOnCancel(t *testing.T) {
	db := newTestDB(t)
	for id := int64(1); id <= 3; id++ {
		addUser(t, db, id, "JavaScript", models.FrequencyDaily, true)
	}

	pusher := &fakePusher{}
	s, err := New(db, pusher, &fakeSweeper{}, Config{Delay: time.Hour})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := s.FanOut(ctx, models.FrequencyDaily); err == nil {
		t.Fatalf("fan-out ignored cancellation")
	}
	if len(pusher.pushed) != 1 {
		t.Fatalf("pushed = %d, want only the first user", len(pusher.pushed))
	}
}

func TestNewRegistersJobs(t *testing.T) {
	s, err := New(nil, &fakePusher{}, &fakeSweeper{}, Config{})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	if got := len(s.cron.Entries()); got != 5 {
		t.Fatalf("jobs = %d, want four tiers and the expiry sweep", got)
	}
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New(nil, &fakePusher{}, &fakeSweeper{}, Config{
		Specs: map[models.Frequency]string{models.FrequencyDaily: "every day"},
	})
	if err == nil {
		t.Fatalf("bad cron spec accepted")
	}
}
