package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/rewardctl/ports"
)

// JournalStore implements ports.TxJournal using SQLite.
type JournalStore struct {
	db *DB
}

// NewJournalStore creates a new SQLite journal store.
func NewJournalStore(db *DB) *JournalStore {
	return &JournalStore{db: db}
}

const journalColumns = `id, type_url, tx_hash, height, code, gas_used, created_id, memo, payload, status, error, created_at`

// Record stores a journal entry.
func (s *JournalStore) Record(ctx context.Context, e ports.JournalEntry) error {
	if e.ID == "" {
		return errors.New("journal entry id is required")
	}
	if e.Payload == "" {
		e.Payload = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tx_journal (`+journalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.TypeURL, e.TxHash, e.Height, e.Code, e.GasUsed, e.CreatedID,
		e.Memo, e.Payload, e.Status, e.Error, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("record journal entry: %w", err)
	}
	return nil
}

// Get retrieves an entry by ID.
func (s *JournalStore) Get(ctx context.Context, id string) (ports.JournalEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+journalColumns+`
		FROM tx_journal
		WHERE id = ?
	`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.JournalEntry{}, ErrNotFound
	}
	return e, err
}

// List returns entries matching f, newest first.
func (s *JournalStore) List(ctx context.Context, f ports.JournalFilter) ([]ports.JournalEntry, error) {
	where, args := journalWhere(f)
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+journalColumns+`
		FROM tx_journal`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	defer rows.Close()

	entries := []ports.JournalEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of entries matching f, ignoring paging.
func (s *JournalStore) Count(ctx context.Context, f ports.JournalFilter) (int, error) {
	where, args := journalWhere(f)
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tx_journal`+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count journal: %w", err)
	}
	return n, nil
}

func journalWhere(f ports.JournalFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.TypeURL != "" {
		conds = append(conds, "type_url = ?")
		args = append(args, f.TypeURL)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if len(conds) == 0 {
		return "", args
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (ports.JournalEntry, error) {
	var (
		e         ports.JournalEntry
		createdAt time.Time
	)
	err := row.Scan(
		&e.ID, &e.TypeURL, &e.TxHash, &e.Height, &e.Code, &e.GasUsed, &e.CreatedID,
		&e.Memo, &e.Payload, &e.Status, &e.Error, &createdAt,
	)
	if err != nil {
		return ports.JournalEntry{}, err
	}
	e.CreatedAt = createdAt.UTC()
	return e, nil
}

// Ensure interface compliance.
var _ ports.TxJournal = (*JournalStore)(nil)
