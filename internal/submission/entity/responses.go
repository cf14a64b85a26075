package entity

type MessageResponse struct {
	Message string `json:"message"`
}

type VersionResponse struct {
	Version string `json:"version"`
}

// SubmitResponse is the body returned to the submitter. On success Status is
// "ok" and the repository coordinates are filled in; on a soft failure only
// Error is set.
type SubmitResponse struct {
	Status    string `json:"status,omitempty"`
	RepoURL   string `json:"repo_url,omitempty"`
	CommitSHA string `json:"commit_sha,omitempty"`
	PagesURL  string `json:"pages_url,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}
