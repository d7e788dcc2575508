package manager

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Transition is one recorded state change for a device. Error is empty
// for successful operations.
type Transition struct {
	ID         int64     `json:"id"`
	DeviceID   string    `json:"device_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Op         string    `json:"op"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Store persists control values and state transition history in SQLite.
//
// Control values survive restarts so the manager can replay them into a
// device's cache at startup. Transition history is append-only and
// queried newest first.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an open SQLite connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveControl upserts one control value for a device.
func (s *Store) SaveControl(ctx context.Context, deviceID, control string, value int) error {
	if deviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if control == "" {
		return fmt.Errorf("control name is required")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO control_values (device_id, control, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (device_id, control) DO UPDATE SET
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		deviceID,
		control,
		value,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving control value: %w", err)
	}

	return nil
}

// LoadControls returns all persisted control values for a device.
func (s *Store) LoadControls(ctx context.Context, deviceID string) (map[string]int, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device id is required")
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT control, value FROM control_values WHERE device_id = ?",
		deviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying control values: %w", err)
	}
	defer rows.Close()

	values := make(map[string]int)
	for rows.Next() {
		var control string
		var value int
		if err := rows.Scan(&control, &value); err != nil {
			return nil, fmt.Errorf("scanning control value: %w", err)
		}
		values[control] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating control values: %w", err)
	}

	return values, nil
}

// RecordTransition appends one transition to the history.
func (s *Store) RecordTransition(ctx context.Context, t Transition) error {
	if t.DeviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if t.OccurredAt.IsZero() {
		t.OccurredAt = time.Now().UTC()
	}

	var errText any
	if t.Error != "" {
		errText = t.Error
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO state_transitions (device_id, from_state, to_state, op, error, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.DeviceID,
		t.From,
		t.To,
		t.Op,
		errText,
		t.OccurredAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting transition: %w", err)
	}

	return nil
}

// History returns recent transitions for a device, newest first.
// Limit defaults to 50 and is capped at 200.
func (s *Store) History(ctx context.Context, deviceID string, limit int) ([]Transition, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device id is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, device_id, from_state, to_state, op, error, occurred_at
		 FROM state_transitions
		 WHERE device_id = ?
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT ?`,
		deviceID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying transitions: %w", err)
	}
	defer rows.Close()

	transitions := make([]Transition, 0, limit)
	for rows.Next() {
		var t Transition
		var errText sql.NullString
		var occurredAt string

		if err := rows.Scan(&t.ID, &t.DeviceID, &t.From, &t.To, &t.Op, &errText, &occurredAt); err != nil {
			return nil, fmt.Errorf("scanning transition: %w", err)
		}
		t.Error = errText.String

		timestamp, err := parseStoreTimestamp(occurredAt)
		if err != nil {
			return nil, err
		}
		t.OccurredAt = timestamp

		transitions = append(transitions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transitions: %w", err)
	}

	return transitions, nil
}

// PruneHistory deletes transitions older than the given duration and
// returns the number of rows removed.
func (s *Store) PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM state_transitions WHERE occurred_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting transitions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

// parseStoreTimestamp parses a timestamp stored in SQLite.
func parseStoreTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("occurred_at is empty")
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse("2006-01-02T15:04:05Z", value)
	if fallbackErr == nil {
		return fallback, nil
	}

	return time.Time{}, fmt.Errorf("parsing occurred_at: %w", err)
}
