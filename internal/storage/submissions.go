package storage

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

// Dispatch states recorded per submission.
const (
	DispatchPending   = "PENDING"
	DispatchDelivered = "DELIVERED"
	DispatchFailed    = "FAILED"
)

// SubmissionRecord is the journal entry for one accepted submission. The
// journal is observability only; the remote repository stays the source of
// truth for task content.
type SubmissionRecord struct {
	DeliveryID    string    `json:"delivery_id"`
	Email         string    `json:"email"`
	Task          string    `json:"task"`
	Round         int       `json:"round"`
	Nonce         string    `json:"nonce"`
	RepoURL       string    `json:"repo_url"`
	CommitSHA     string    `json:"commit_sha"`
	PagesURL      string    `json:"pages_url"`
	DispatchState string    `json:"dispatch_state"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// SubmissionStore handles submission persistence in SQLite
type SubmissionStore struct {
	db         *DB
	maxRecords int
}

// NewSubmissionStore creates a new submission store
func NewSubmissionStore(db *DB, maxRecords int) *SubmissionStore {
	if maxRecords <= 0 {
		maxRecords = 1000
	}
	return &SubmissionStore{
		db:         db,
		maxRecords: maxRecords,
	}
}

// RecordSubmission stores a submission record, replacing any previous record
// with the same delivery id.
func (s *SubmissionStore) RecordSubmission(record SubmissionRecord) error {
	query := `
		INSERT INTO submissions (
			delivery_id, email, task, round, nonce,
			repo_url, commit_sha, pages_url, dispatch_state, submitted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(delivery_id) DO UPDATE SET
			email = excluded.email,
			task = excluded.task,
			round = excluded.round,
			nonce = excluded.nonce,
			repo_url = excluded.repo_url,
			commit_sha = excluded.commit_sha,
			pages_url = excluded.pages_url,
			dispatch_state = excluded.dispatch_state,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := s.db.Exec(query,
		record.DeliveryID, record.Email, record.Task, record.Round, record.Nonce,
		record.RepoURL, record.CommitSHA, record.PagesURL, record.DispatchState, record.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}

	if err := s.cleanupOldRecords(); err != nil {
		log.Printf("Warning: failed to cleanup old submission records: %v\n", err)
	}

	return nil
}

// UpdateDispatchState marks the delivery outcome for a submission.
func (s *SubmissionStore) UpdateDispatchState(deliveryID, state string) error {
	query := `
		UPDATE submissions
		SET dispatch_state = ?, updated_at = CURRENT_TIMESTAMP
		WHERE delivery_id = ?
	`
	result, err := s.db.Exec(query, state, deliveryID)
	if err != nil {
		return fmt.Errorf("failed to update dispatch state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update dispatch state: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("submission not found: %s", deliveryID)
	}
	return nil
}

// GetSubmission retrieves a submission by delivery id
func (s *SubmissionStore) GetSubmission(deliveryID string) (*SubmissionRecord, error) {
	query := `
		SELECT delivery_id, email, task, round, nonce,
			   repo_url, commit_sha, pages_url, dispatch_state, submitted_at
		FROM submissions
		WHERE delivery_id = ?
	`

	var record SubmissionRecord
	err := s.db.QueryRow(query, deliveryID).Scan(
		&record.DeliveryID, &record.Email, &record.Task, &record.Round, &record.Nonce,
		&record.RepoURL, &record.CommitSHA, &record.PagesURL, &record.DispatchState, &record.SubmittedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("submission not found: %s", deliveryID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	return &record, nil
}

// GetRecentSubmissions retrieves the N most recent submissions
func (s *SubmissionStore) GetRecentSubmissions(limit int) ([]*SubmissionRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT delivery_id, email, task, round, nonce,
			   repo_url, commit_sha, pages_url, dispatch_state, submitted_at
		FROM submissions
		ORDER BY submitted_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var records []*SubmissionRecord
	for rows.Next() {
		var record SubmissionRecord
		err := rows.Scan(
			&record.DeliveryID, &record.Email, &record.Task, &record.Round, &record.Nonce,
			&record.RepoURL, &record.CommitSHA, &record.PagesURL, &record.DispatchState, &record.SubmittedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

// cleanupOldRecords keeps the journal bounded to maxRecords rows
func (s *SubmissionStore) cleanupOldRecords() error {
	query := `
		DELETE FROM submissions
		WHERE id NOT IN (
			SELECT id FROM submissions
			ORDER BY submitted_at DESC, id DESC
			LIMIT ?
		)
	`
	_, err := s.db.Exec(query, s.maxRecords)
	return err
}
