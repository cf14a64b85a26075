package entity

// Attachment is a single file carried by a submission. Content is
// base64-encoded and written to the repository verbatim after decoding.
type Attachment struct {
	Filename string `json:"filename" validate:"required"`
	Content  string `json:"content" validate:"required"`
	MimeType string `json:"mime_type"`
}

// DefaultMimeType is applied when a submission leaves mime_type empty.
const DefaultMimeType = "application/octet-stream"

type Submission struct {
	Email         string       `json:"email" validate:"required"`
	Secret        string       `json:"secret" validate:"required"`
	Task          string       `json:"task" validate:"required"`
	Round         int          `json:"round" validate:"required,min=1"`
	Nonce         string       `json:"nonce" validate:"required"`
	Brief         string       `json:"brief"`
	Checks        []string     `json:"checks"`
	EvaluationURL string       `json:"evaluation_url" validate:"required,url"`
	Attachments   []Attachment `json:"attachments" validate:"dive"`
}

// EvaluationPayload is the projection of a submission plus its sync result
// that gets POSTed to the submission's evaluation_url.
type EvaluationPayload struct {
	Email     string `json:"email"`
	Task      string `json:"task"`
	Round     int    `json:"round"`
	Nonce     string `json:"nonce"`
	RepoURL   string `json:"repo_url"`
	CommitSHA string `json:"commit_sha"`
	PagesURL  string `json:"pages_url"`
}
