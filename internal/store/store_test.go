package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCountersStartAtZero(t *testing.T) {
	s := openTestStore(t)

	for table, cols := range counters {
		stats, err := s.CounterStats(context.Background(), table)
		if err != nil {
			t.Fatalf("CounterStats(%s) error = %v", table, err)
		}
		if len(stats) != len(cols) {
			t.Fatalf("CounterStats(%s) returned %d stats, want %d", table, len(stats), len(cols))
		}
		for i, st := range stats {
			if st.Category != cols[i] {
				t.Errorf("stat %d category = %q, want %q", i, st.Category, cols[i])
			}
			if st.Count != 0 {
				t.Errorf("fresh counter %s.%s = %d, want 0", table, st.Category, st.Count)
			}
		}
	}
}

func TestIncrementCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.IncrementCounter(ctx, "join_reason", "develop"); err != nil {
			t.Fatalf("IncrementCounter() error = %v", err)
		}
	}
	if err := s.IncrementCounter(ctx, "found_from", "youtube"); err != nil {
		t.Fatalf("IncrementCounter() error = %v", err)
	}

	stats, err := s.CounterStats(ctx, "join_reason")
	if err != nil {
		t.Fatalf("CounterStats() error = %v", err)
	}
	byCat := make(map[string]int64)
	for _, st := range stats {
		byCat[st.Category] = st.Count
	}
	if byCat["develop"] != 3 || byCat["hangout"] != 0 {
		t.Errorf("join_reason stats = %v", byCat)
	}
}

func TestIncrementCounterRejectsUnknownIdentifiers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		table  string
		column string
	}{
		{name: "unknown table", table: "users; drop table users", column: "develop"},
		{name: "unknown column", table: "join_reason", column: "develop = 0, hangout"},
		{name: "column from other table", table: "join_reason", column: "youtube"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.IncrementCounter(ctx, tt.table, tt.column)
			if !errors.Is(err, ErrUnknownCounter) {
				t.Errorf("IncrementCounter(%q, %q) error = %v, want ErrUnknownCounter", tt.table, tt.column, err)
			}
		})
	}
}

func TestCounterStatsUnknownTable(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.CounterStats(context.Background(), "bogus"); !errors.Is(err, ErrUnknownCounter) {
		t.Errorf("CounterStats(bogus) error = %v, want ErrUnknownCounter", err)
	}
}

func TestDraftLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.PendingDraft(ctx, "u1", "c1"); !errors.Is(err, ErrNoDraft) {
		t.Fatalf("PendingDraft() on empty store error = %v, want ErrNoDraft", err)
	}

	if err := s.SaveDraft(ctx, "u1", "c1", "first version"); err != nil {
		t.Fatalf("SaveDraft() error = %v", err)
	}
	if err := s.SaveDraft(ctx, "u1", "c1", "second version"); err != nil {
		t.Fatalf("SaveDraft() replace error = %v", err)
	}

	draft, err := s.PendingDraft(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("PendingDraft() error = %v", err)
	}
	if draft != "second version" {
		t.Errorf("draft = %q, want the replaced content", draft)
	}

	// Drafts are scoped per channel.
	if _, err := s.PendingDraft(ctx, "u1", "c2"); !errors.Is(err, ErrNoDraft) {
		t.Errorf("PendingDraft() in other channel error = %v, want ErrNoDraft", err)
	}

	if err := s.ClearPendingDraft(ctx, "u1", "c1"); err != nil {
		t.Fatalf("ClearPendingDraft() error = %v", err)
	}
	if _, err := s.PendingDraft(ctx, "u1", "c1"); !errors.Is(err, ErrNoDraft) {
		t.Errorf("PendingDraft() after clear error = %v, want ErrNoDraft", err)
	}
}

func TestQuestionChannels(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ids, err := s.QuestionChannels(ctx)
	if err != nil {
		t.Fatalf("QuestionChannels() error = %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("fresh store has question channels: %v", ids)
	}

	for _, id := range []string{"c2", "c1", "c2"} {
		if err := s.AddQuestionChannel(ctx, id); err != nil {
			t.Fatalf("AddQuestionChannel(%s) error = %v", id, err)
		}
	}

	ids, err = s.QuestionChannels(ctx)
	if err != nil {
		t.Fatalf("QuestionChannels() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "c1" || ids[1] != "c2" {
		t.Errorf("QuestionChannels() = %v, want [c1 c2]", ids)
	}
}

func TestSetUserRolesIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SetUserRoles(ctx, "u1", []string{"r1", "r2"}); err != nil {
		t.Fatalf("SetUserRoles() error = %v", err)
	}
	if err := s.SetUserRoles(ctx, "u1", []string{"r2", "r3"}); err != nil {
		t.Fatalf("SetUserRoles() second call error = %v", err)
	}

	var n int
	if err := s.db.QueryRow("select count(*) from user_roles where user_id = ?", "u1").Scan(&n); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if n != 3 {
		t.Errorf("user_roles rows = %d, want 3", n)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := Open(path, logger)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	if err := s.IncrementCounter(context.Background(), "join_reason", "help"); err != nil {
		t.Fatalf("IncrementCounter() error = %v", err)
	}
	s.Close()

	s, err = Open(path, logger)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer s.Close()

	stats, err := s.CounterStats(context.Background(), "join_reason")
	if err != nil {
		t.Fatalf("CounterStats() error = %v", err)
	}
	for _, st := range stats {
		if st.Category == "help" && st.Count != 1 {
			t.Errorf("help counter = %d after reopen, want 1", st.Count)
		}
	}
}
