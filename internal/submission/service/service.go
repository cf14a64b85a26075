package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	validator "gopkg.in/go-playground/validator.v9"

	"github.com/Ojal2/taskbridge/internal/dispatch"
	"github.com/Ojal2/taskbridge/internal/reposync"
	"github.com/Ojal2/taskbridge/internal/storage"
	"github.com/Ojal2/taskbridge/internal/submission/entity"
	"github.com/Ojal2/taskbridge/pkg/httputil"
)

// Dispatch modes
const (
	ModeBlocking = "blocking"
	ModeAsync    = "async"
)

// Synchronizer brings the remote repository to the submitted state.
type Synchronizer interface {
	Synchronize(ctx context.Context, task string, round int, brief string, files []reposync.File) (reposync.Result, error)
}

// Dispatcher delivers the evaluation payload synchronously.
type Dispatcher interface {
	Deliver(ctx context.Context, url string, payload interface{}) bool
}

// Enqueuer schedules fire-and-forget deliveries.
type Enqueuer interface {
	Enqueue(job dispatch.Job) bool
}

// Journal records submissions and their dispatch outcomes. Optional.
type Journal interface {
	RecordSubmission(record storage.SubmissionRecord) error
	UpdateDispatchState(deliveryID, state string) error
	GetRecentSubmissions(limit int) ([]*storage.SubmissionRecord, error)
}

// SubmissionService validates submissions, synchronizes the repository and
// triggers evaluation delivery.
type SubmissionService struct {
	secret       string
	mode         string
	synchronizer Synchronizer
	dispatcher   Dispatcher
	queue        Enqueuer
	journal      Journal
	validate     *validator.Validate
	now          func() time.Time
	Version      string
}

func NewSubmissionService(secret, mode string, synchronizer Synchronizer, dispatcher Dispatcher, queue Enqueuer, journal Journal, version string) *SubmissionService {
	return &SubmissionService{
		secret:       secret,
		mode:         mode,
		synchronizer: synchronizer,
		dispatcher:   dispatcher,
		queue:        queue,
		journal:      journal,
		validate:     validator.New(),
		now:          time.Now,
		Version:      version,
	}
}

// HandleSubmission runs the full submission workflow. Validation and secret
// failures produce no side effects; a secret mismatch is reported as a soft
// error in the body (status 200) for compatibility with existing submitters.
func (s *SubmissionService) HandleSubmission(ctx context.Context, sub entity.Submission) (entity.SubmitResponse, error) {
	if err := s.validate.Struct(sub); err != nil {
		return entity.SubmitResponse{}, httputil.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}

	files, err := decodeAttachments(sub.Attachments)
	if err != nil {
		return entity.SubmitResponse{}, httputil.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if sub.Secret != s.secret {
		log.Println("Invalid secret from " + sub.Email)
		return entity.SubmitResponse{Error: "Invalid secret"}, nil
	}

	result, err := s.synchronizer.Synchronize(ctx, sub.Task, sub.Round, sub.Brief, files)
	if err != nil {
		log.Printf("Synchronization failed for task %s round %d: %v\n", sub.Task, sub.Round, err)
		if missing, ok := err.(*reposync.RepoMissingError); ok {
			return entity.SubmitResponse{}, httputil.NewHTTPError(http.StatusInternalServerError, missing.Error())
		}
		return entity.SubmitResponse{}, httputil.NewHTTPError(http.StatusInternalServerError, "failed to synchronize repository")
	}

	deliveryID := uuid.New().String()
	s.record(storage.SubmissionRecord{
		DeliveryID:    deliveryID,
		Email:         sub.Email,
		Task:          sub.Task,
		Round:         sub.Round,
		Nonce:         sub.Nonce,
		RepoURL:       result.RepoURL,
		CommitSHA:     result.CommitSHA,
		PagesURL:      result.PagesURL,
		DispatchState: storage.DispatchPending,
		SubmittedAt:   s.now().UTC(),
	})

	payload := entity.EvaluationPayload{
		Email:     sub.Email,
		Task:      sub.Task,
		Round:     sub.Round,
		Nonce:     sub.Nonce,
		RepoURL:   result.RepoURL,
		CommitSHA: result.CommitSHA,
		PagesURL:  result.PagesURL,
	}

	if s.mode == ModeAsync && s.queue != nil {
		s.queue.Enqueue(dispatch.Job{DeliveryID: deliveryID, URL: sub.EvaluationURL, Payload: payload})
	} else {
		delivered := s.dispatcher.Deliver(ctx, sub.EvaluationURL, payload)
		s.MarkDispatched(deliveryID, delivered)
	}

	return entity.SubmitResponse{
		Status:    "ok",
		RepoURL:   result.RepoURL,
		CommitSHA: result.CommitSHA,
		PagesURL:  result.PagesURL,
	}, nil
}

// MarkDispatched journals a delivery outcome. Used directly in blocking mode
// and as the queue result callback in async mode.
func (s *SubmissionService) MarkDispatched(deliveryID string, delivered bool) {
	if s.journal == nil {
		return
	}
	state := storage.DispatchFailed
	if delivered {
		state = storage.DispatchDelivered
	}
	if err := s.journal.UpdateDispatchState(deliveryID, state); err != nil {
		log.Printf("Failed to journal dispatch state for %s: %v\n", deliveryID, err)
	}
}

// RecentSubmissions lists journal records, newest first.
func (s *SubmissionService) RecentSubmissions(limit int) ([]*storage.SubmissionRecord, error) {
	if s.journal == nil {
		return []*storage.SubmissionRecord{}, nil
	}
	records, err := s.journal.GetRecentSubmissions(limit)
	if err != nil {
		return nil, httputil.NewHTTPError(http.StatusInternalServerError, "failed to list submissions")
	}
	if records == nil {
		records = []*storage.SubmissionRecord{}
	}
	return records, nil
}

func (s *SubmissionService) record(record storage.SubmissionRecord) {
	if s.journal == nil {
		return
	}
	if err := s.journal.RecordSubmission(record); err != nil {
		log.Printf("Failed to journal submission %s: %v\n", record.DeliveryID, err)
	}
}

func decodeAttachments(attachments []entity.Attachment) ([]reposync.File, error) {
	files := make([]reposync.File, 0, len(attachments))
	for _, attachment := range attachments {
		content, err := base64.StdEncoding.DecodeString(attachment.Content)
		if err != nil {
			return nil, fmt.Errorf("attachment %s: content is not valid base64", attachment.Filename)
		}
		files = append(files, reposync.File{Path: attachment.Filename, Content: content})
	}
	return files, nil
}

func validationMessage(err error) string {
	if fieldErrors, ok := err.(validator.ValidationErrors); ok && len(fieldErrors) > 0 {
		fieldError := fieldErrors[0]
		switch fieldError.Tag() {
		case "required":
			return fmt.Sprintf("field %s is required", fieldError.Field())
		default:
			return fmt.Sprintf("field %s failed %s validation", fieldError.Field(), fieldError.Tag())
		}
	}
	return "invalid submission"
}
