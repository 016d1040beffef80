package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestPGRepoRecordInsertsEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	event := NewEvent(KindWebhook, "checkout.session.completed", "evt_123", map[string]any{"session_id": "cs_test_1"})

	mock.ExpectExec("INSERT INTO ledger_events").
		WithArgs(
			event.ID,
			KindWebhook,
			"checkout.session.completed",
			"evt_123",
			[]byte(`{"session_id":"cs_test_1"}`),
			event.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Record(context.Background(), event); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoRecordEmptyReferenceAndPayload(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	event := NewEvent(KindFunnel, "page_view", "", nil)
	mock.ExpectExec("INSERT INTO ledger_events").
		WithArgs(event.ID, KindFunnel, "page_view", nil, []byte("{}"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := (&PGRepo{DB: db}).Record(context.Background(), event); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoRecordPropagatesError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	boom := errors.New("connection refused")
	mock.ExpectExec("INSERT INTO ledger_events").WillReturnError(boom)

	err = (&PGRepo{DB: db}).Record(context.Background(), NewEvent(KindFunnel, "x", "", nil))
	if !errors.Is(err, boom) {
		t.Fatalf("expected driver error, got %v", err)
	}
}

func TestNewEventAssignsIdentity(t *testing.T) {
	e := NewEvent(KindFunnel, "page_view", "session-1", nil)
	if _, err := uuid.Parse(e.ID); err != nil {
		t.Fatalf("expected uuid id, got %q", e.ID)
	}
	if e.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}
}

func TestMemoryRepoRecords(t *testing.T) {
	repo := NewMemoryRepo()
	if err := repo.Record(context.Background(), NewEvent(KindFunnel, "page_view", "s1", nil)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	events := repo.Events()
	if len(events) != 1 || events[0].EventType != "page_view" {
		t.Fatalf("unexpected events: %#v", events)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := repo.Record(ctx, NewEvent(KindFunnel, "x", "", nil)); err == nil {
		t.Fatalf("expected cancelled context error")
	}
}

func TestNopRepo(t *testing.T) {
	if err := (NopRepo{}).Record(context.Background(), Event{}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
