package hosting

import "context"

// User is the authenticated account the service publishes under.
type User struct {
	Login string `json:"login"`
}

// Repo identifies a repository on the hosting service.
type Repo struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
}

// File is a repository file read back from the contents API. SHA is the
// version token required to update the file in place.
type File struct {
	Path    string
	SHA     string
	Content []byte
}

// Client abstracts the hosting service REST API. Lookups report absence
// through the found flag instead of an error, so callers never have to
// guess whether a failure means "not there" or "service broke".
type Client interface {
	CurrentUser(ctx context.Context) (User, error)
	GetRepo(ctx context.Context, owner, name string) (Repo, bool, error)
	CreateRepo(ctx context.Context, name string) (Repo, error)
	GetFile(ctx context.Context, repo Repo, path string) (File, bool, error)
	CreateFile(ctx context.Context, repo Repo, path string, content []byte, message string) error
	UpdateFile(ctx context.Context, repo Repo, path string, content []byte, sha, message string) error
	LatestCommit(ctx context.Context, repo Repo) (string, error)
	LicenseText(ctx context.Context, key string) (string, error)
}
