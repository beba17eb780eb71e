// Package store persists counters, granted role sets and pending question
// drafts in a local sqlite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrUnknownCounter is returned when an increment targets a table or column
// outside the fixed counter registry.
var ErrUnknownCounter = errors.New("unknown counter")

// ErrNoDraft is returned when no pending question draft exists.
var ErrNoDraft = errors.New("no pending draft")

// counters maps counter tables to their allowed columns. Counter tables hold
// a single row with one integer column per category.
var counters = map[string][]string{
	"join_reason": {"hangout", "help", "develop"},
	"found_from":  {"friend", "search_engine", "youtube", "twitter", "market_cap", "meetup"},
}

// Store wraps the sqlite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (and migrates) the database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`create table if not exists user_roles (
			user_id text not null,
			role_id text not null,
			primary key (user_id, role_id)
		)`,
		`create table if not exists pending_questions (
			user_id text not null,
			channel_id text not null,
			content text not null,
			primary key (user_id, channel_id)
		)`,
		`create table if not exists question_channels (
			id text primary key
		)`,
	}
	for table, cols := range counters {
		defs := make([]string, len(cols))
		for i, col := range cols {
			defs[i] = fmt.Sprintf("%s integer not null default 0", col)
		}
		stmts = append(stmts,
			fmt.Sprintf("create table if not exists %s (%s)", table, strings.Join(defs, ", ")))
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	// Counter tables hold exactly one row.
	for table := range counters {
		var n int
		if err := s.db.QueryRow(fmt.Sprintf("select count(*) from %s", table)).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			if _, err := s.db.Exec(fmt.Sprintf("insert into %s default values", table)); err != nil {
				return err
			}
		}
	}
	return nil
}

// IncrementCounter increments one category column of a counter table. The
// table and column must be registered; identifiers are never interpolated
// from user input without this check.
func (s *Store) IncrementCounter(ctx context.Context, table, column string) error {
	cols, ok := counters[table]
	if !ok {
		return fmt.Errorf("%w: table %q", ErrUnknownCounter, table)
	}
	found := false
	for _, c := range cols {
		if c == column {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: column %q in table %q", ErrUnknownCounter, column, table)
	}

	q := fmt.Sprintf("update %s set %s = %s + 1", table, column, column)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("failed to increment %s.%s: %w", table, column, err)
	}
	return nil
}

// CounterStats returns the current value of every column of a counter table,
// in registry order.
func (s *Store) CounterStats(ctx context.Context, table string) ([]Stat, error) {
	cols, ok := counters[table]
	if !ok {
		return nil, fmt.Errorf("%w: table %q", ErrUnknownCounter, table)
	}

	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("select %s from %s", strings.Join(cols, ", "), table))
	vals := make([]int64, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := row.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("failed to read %s stats: %w", table, err)
	}

	stats := make([]Stat, len(cols))
	for i, col := range cols {
		stats[i] = Stat{Category: col, Count: vals[i]}
	}
	return stats, nil
}

// Stat is one counter category with its current value.
type Stat struct {
	Category string
	Count    int64
}

// SetUserRoles records the role IDs granted to a user during onboarding.
func (s *Store) SetUserRoles(ctx context.Context, userID string, roleIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range roleIDs {
		if _, err := tx.ExecContext(ctx,
			"insert or ignore into user_roles (user_id, role_id) values (?, ?)", userID, id); err != nil {
			return fmt.Errorf("failed to record role: %w", err)
		}
	}
	return tx.Commit()
}

// PendingDraft returns the saved question draft for a user in a channel.
func (s *Store) PendingDraft(ctx context.Context, userID, channelID string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		"select content from pending_questions where user_id = ? and channel_id = ?",
		userID, channelID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoDraft
	}
	if err != nil {
		return "", fmt.Errorf("failed to read pending draft: %w", err)
	}
	return content, nil
}

// SaveDraft stores or replaces a pending question draft.
func (s *Store) SaveDraft(ctx context.Context, userID, channelID, content string) error {
	_, err := s.db.ExecContext(ctx,
		"insert or replace into pending_questions (user_id, channel_id, content) values (?, ?, ?)",
		userID, channelID, content)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// ClearPendingDraft removes a pending question draft.
func (s *Store) ClearPendingDraft(ctx context.Context, userID, channelID string) error {
	_, err := s.db.ExecContext(ctx,
		"delete from pending_questions where user_id = ? and channel_id = ?", userID, channelID)
	if err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}

// QuestionChannels lists the designated question channels.
func (s *Store) QuestionChannels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "select id from question_channels order by id")
	if err != nil {
		return nil, fmt.Errorf("failed to list question channels: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddQuestionChannel registers a designated question channel.
func (s *Store) AddQuestionChannel(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"insert or ignore into question_channels (id) values (?)", id)
	if err != nil {
		return fmt.Errorf("failed to add question channel: %w", err)
	}
	return nil
}
