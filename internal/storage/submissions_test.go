package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionStore_RecordAndGet(t *testing.T) {
	db, err := NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	store := NewSubmissionStore(db, 100)

	record := SubmissionRecord{
		DeliveryID:    "delivery-123",
		Email:         "student@example.com",
		Task:          "demo",
		Round:         1,
		Nonce:         "nonce-abc",
		RepoURL:       "https://github.com/octocat/demo",
		CommitSHA:     "deadbeef",
		PagesURL:      "https://octocat.github.io/demo/",
		DispatchState: DispatchPending,
		SubmittedAt:   time.Now().UTC().Truncate(time.Second),
	}

	err = store.RecordSubmission(record)
	require.NoError(t, err)

	retrieved, err := store.GetSubmission("delivery-123")
	require.NoError(t, err)
	assert.Equal(t, record.DeliveryID, retrieved.DeliveryID)
	assert.Equal(t, record.Email, retrieved.Email)
	assert.Equal(t, record.Task, retrieved.Task)
	assert.Equal(t, record.Round, retrieved.Round)
	assert.Equal(t, record.Nonce, retrieved.Nonce)
	assert.Equal(t, record.RepoURL, retrieved.RepoURL)
	assert.Equal(t, record.CommitSHA, retrieved.CommitSHA)
	assert.Equal(t, record.PagesURL, retrieved.PagesURL)
	assert.Equal(t, DispatchPending, retrieved.DispatchState)
}

func TestSubmissionStore_GetNotFound(t *testing.T) {
	db, err := NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	store := NewSubmissionStore(db, 100)

	_, err = store.GetSubmission("nonexistent")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "submission not found")
}

func TestSubmissionStore_UpdateDispatchState(t *testing.T) {
	db, err := NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	store := NewSubmissionStore(db, 100)

	record := SubmissionRecord{
		DeliveryID:    "delivery-456",
		Email:         "student@example.com",
		Task:          "demo",
		Round:         1,
		Nonce:         "nonce-def",
		DispatchState: DispatchPending,
		SubmittedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.RecordSubmission(record))

	require.NoError(t, store.UpdateDispatchState("delivery-456", DispatchDelivered))

	retrieved, err := store.GetSubmission("delivery-456")
	require.NoError(t, err)
	assert.Equal(t, DispatchDelivered, retrieved.DispatchState)

	err = store.UpdateDispatchState("missing", DispatchFailed)
	assert.Error(t, err)
}

func TestSubmissionStore_GetRecentSubmissions(t *testing.T) {
	db, err := NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	store := NewSubmissionStore(db, 100)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.RecordSubmission(SubmissionRecord{
			DeliveryID:    fmt.Sprintf("delivery-%d", i),
			Email:         "student@example.com",
			Task:          "demo",
			Round:         i,
			Nonce:         fmt.Sprintf("nonce-%d", i),
			DispatchState: DispatchPending,
			SubmittedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := store.GetRecentSubmissions(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "delivery-3", records[0].DeliveryID)
	assert.Equal(t, "delivery-2", records[1].DeliveryID)
}

func TestSubmissionStore_CleanupOldRecords(t *testing.T) {
	db, err := NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	store := NewSubmissionStore(db, 3)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 5; i++ {
		require.NoError(t, store.RecordSubmission(SubmissionRecord{
			DeliveryID:    fmt.Sprintf("delivery-%d", i),
			Email:         "student@example.com",
			Task:          "demo",
			Round:         i,
			Nonce:         fmt.Sprintf("nonce-%d", i),
			DispatchState: DispatchPending,
			SubmittedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := store.GetRecentSubmissions(10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "delivery-5", records[0].DeliveryID)

	_, err = store.GetSubmission("delivery-1")
	assert.Error(t, err)
}
