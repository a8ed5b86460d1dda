// Package session provides durable per-session conversation state. Each
// invocation of the core runs in a fresh process, so everything the
// orchestrator needs is reconstructed from this store.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MannPATIRA/pascal-ai/internal/protocol"
)

// Turn roles recorded in history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one recorded message in a session's history. Immutable once
// appended.
type Turn struct {
	Role    string
	Content string
}

// Session is the durable record for one conversation: ordered turns plus the
// last reply's status and action list.
type Session struct {
	ID          string
	Turns       []Turn
	LastStatus  protocol.Status
	LastActions []protocol.Action
}

// Summary is a session listing row.
type Summary struct {
	ID         string
	UpdatedAt  string
	LastStatus string
	TurnCount  int
}

// Store persists sessions and turns. Concurrent events on one session are
// last-writer-wins; the store does not guard against racing invocations.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an open session database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Load reads a session by id. A session that has never been seen yields an
// empty record with the given id, not an error.
func (s *Store) Load(ctx context.Context, id string) (Session, error) {
	sess := Session{ID: id}

	var lastStatus, lastActions sql.NullString
	row := s.db.QueryRowContext(ctx, `SELECT last_status, last_actions FROM sessions WHERE session_id=?`, id)
	if err := row.Scan(&lastStatus, &lastActions); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sess, nil
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	if lastStatus.Valid {
		sess.LastStatus = protocol.Status(lastStatus.String)
	}
	if lastActions.Valid && lastActions.String != "" {
		sess.LastActions = protocol.DecodeActions([]byte(lastActions.String))
	}

	rows, err := s.db.QueryContext(ctx, `SELECT role, content FROM turns WHERE session_id=? ORDER BY seq`, id)
	if err != nil {
		return Session{}, fmt.Errorf("read turns: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Role, &t.Content); err != nil {
			return Session{}, fmt.Errorf("scan turn: %w", err)
		}
		sess.Turns = append(sess.Turns, t)
	}
	if err := rows.Err(); err != nil {
		return Session{}, fmt.Errorf("iterate turns: %w", err)
	}
	return sess, nil
}

// Commit upserts the session row and appends the turn pair for one processed
// event in a single transaction.
func (s *Store) Commit(ctx context.Context, sess Session, userTurn, assistantTurn Turn) error {
	actionsJSON, err := encodeActions(sess.LastActions)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin commit session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO sessions(session_id, created_at, updated_at, last_status, last_actions)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET updated_at=excluded.updated_at,
			last_status=excluded.last_status, last_actions=excluded.last_actions`,
		sess.ID, now, now, nullableString(string(sess.LastStatus)), nullableString(actionsJSON)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert session: %w", err)
	}
	for _, turn := range []Turn{userTurn, assistantTurn} {
		if err := s.insertTurn(ctx, tx, sess.ID, turn); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

// List returns all sessions, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT s.session_id, s.updated_at, COALESCE(s.last_status, ''),
		(SELECT COUNT(*) FROM turns t WHERE t.session_id = s.session_id)
		FROM sessions s ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Summary
	for rows.Next() {
		var item Summary
		if err := rows.Scan(&item.ID, &item.UpdatedAt, &item.LastStatus, &item.TurnCount); err != nil {
			return nil, fmt.Errorf("scan session summary: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func (s *Store) insertTurn(ctx context.Context, tx *sql.Tx, sessionID string, turn Turn) error {
	seq, err := s.nextSeq(ctx, tx, sessionID)
	if err != nil {
		return err
	}
	ts := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `INSERT INTO turns(session_id, seq, ts, role, content) VALUES(?, ?, ?, ?, ?)`,
		sessionID, seq, ts, turn.Role, turn.Content); err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func (s *Store) nextSeq(ctx context.Context, tx *sql.Tx, sessionID string) (int, error) {
	var seq int
	row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM turns WHERE session_id=?`, sessionID)
	if err := row.Scan(&seq); err != nil {
		return 0, fmt.Errorf("read turn seq: %w", err)
	}
	return seq + 1, nil
}

func encodeActions(actions []protocol.Action) (string, error) {
	if len(actions) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(actions)
	if err != nil {
		return "", fmt.Errorf("marshal last actions: %w", err)
	}
	return string(raw), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
