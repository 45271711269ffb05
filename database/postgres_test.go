package database

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/korjavin/topicquizbot/models"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()
	requireDocker(t)

	dsn, cleanup := startPostgres(t, ctx)
	defer cleanup()

	db, err := New(ctx, Options{Driver: DriverPostgres, URL: dsn})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	q := sampleQuestion(42, now)
	if err := db.CreateQuestion(ctx, q); err != nil {
		t.Fatalf("create question: %v", err)
	}
	got, err := db.GetQuestion(ctx, q.ID)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if len(got.CorrectAnswers) != 2 || got.CorrectAnswers[1] != "3" {
		t.Fatalf("correct answers = %v", got.CorrectAnswers)
	}

	a := &models.Answer{UserID: 42, QuestionID: q.ID, Values: []string{"2"}, CreatedAt: now}
	if err := db.CreateAnswer(ctx, a); err != nil {
		t.Fatalf("create answer: %v", err)
	}
	answers, err := db.RecentAnswers(ctx, 42, 10)
	if err != nil {
		t.Fatalf("recent answers: %v", err)
	}
	if len(answers) != 1 || answers[0].Question == nil || answers[0].Question.Text != q.Text {
		t.Fatalf("answers = %+v", answers)
	}

	chain := &models.MessageChain{UserID: 42, QuestionID: &q.ID, MessageIDs: []int{1, 2}, CreatedAt: now, DeleteAt: now.Add(20 * time.Second)}
	if err := db.CreateChain(ctx, chain); err != nil {
		t.Fatalf("create chain: %v", err)
	}
	due, err := db.DueChains(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("due chains: %v", err)
	}
	if len(due) != 1 || len(due[0].MessageIDs) != 2 {
		t.Fatalf("due = %+v", due)
	}

	n, err := db.DeleteExpiredQuestions(ctx, now.Add(31*24*time.Hour))
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted = %d, want 1", n)
	}
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}
