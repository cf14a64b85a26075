package endpoint

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Ojal2/taskbridge/internal/submission/entity"
	service "github.com/Ojal2/taskbridge/internal/submission/service"
	httputil "github.com/Ojal2/taskbridge/pkg/httputil"
)

// SubmissionHTTPEndpoint http endpoint for task submissions
type SubmissionHTTPEndpoint struct {
	service *service.SubmissionService
}

// NewSubmissionHTTPEndpoint returns new submission endpoint instance
func NewSubmissionHTTPEndpoint(service *service.SubmissionService) *SubmissionHTTPEndpoint {
	return &SubmissionHTTPEndpoint{
		service: service,
	}
}

// IndexHandler liveness probe
func (e *SubmissionHTTPEndpoint) IndexHandler(w http.ResponseWriter, r *http.Request) {
	httputil.ResponseJSON(entity.MessageResponse{Message: "taskbridge API is running"}, http.StatusOK, w)
}

// SubmitHandler accepts a task submission
func (e *SubmissionHTTPEndpoint) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.ResponseError("method not allowed", http.StatusMethodNotAllowed, w)
		return
	}

	submission := entity.Submission{}
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&submission); err != nil {
		httputil.ResponseError("Can't read request body", http.StatusBadRequest, w)
		return
	}

	response, err := e.service.HandleSubmission(r.Context(), submission)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.ResponseJSON(response, http.StatusOK, w)
}

// SubmissionListHandler lists recent journal records
func (e *SubmissionHTTPEndpoint) SubmissionListHandler(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.ResponseError("limit must be a positive integer", http.StatusBadRequest, w)
			return
		}
		limit = parsed
	}

	records, err := e.service.RecentSubmissions(limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.ResponseJSON(records, http.StatusOK, w)
}

// VersionHandler reports the running build version
func (e *SubmissionHTTPEndpoint) VersionHandler(w http.ResponseWriter, r *http.Request) {
	httputil.ResponseJSON(entity.VersionResponse{Version: e.service.Version}, http.StatusOK, w)
}
