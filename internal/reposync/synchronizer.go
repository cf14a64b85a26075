package reposync

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Ojal2/taskbridge/internal/hosting"
)

// File is a decoded attachment ready to be written to the repository.
type File struct {
	Path    string
	Content []byte
}

// Result holds the repository coordinates produced by one synchronization.
type Result struct {
	RepoURL   string
	CommitSHA string
	PagesURL  string
}

// RepoMissingError reports a round > 1 submission targeting a repository
// that was never created by a round 1 submission. Not retryable.
type RepoMissingError struct {
	Task  string
	Round int
}

func (e *RepoMissingError) Error() string {
	return fmt.Sprintf("repository %s does not exist for round %d", e.Task, e.Round)
}

// Synchronizer brings a remote repository to the state described by a
// submission: attachments upserted in order, README accumulating one section
// per round, LICENSE created on round 1.
type Synchronizer struct {
	client hosting.Client
	now    func() time.Time
}

func NewSynchronizer(client hosting.Client) *Synchronizer {
	return &Synchronizer{client: client, now: time.Now}
}

func (s *Synchronizer) Synchronize(ctx context.Context, task string, round int, brief string, files []File) (Result, error) {
	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to resolve hosting account: %w", err)
	}

	repo, found, err := s.client.GetRepo(ctx, user.Login, task)
	if err != nil {
		return Result{}, fmt.Errorf("failed to look up repository %s: %w", task, err)
	}
	if !found {
		if round != 1 {
			return Result{}, &RepoMissingError{Task: task, Round: round}
		}
		log.Println("Creating repository: " + task)
		repo, err = s.client.CreateRepo(ctx, task)
		if err != nil {
			return Result{}, fmt.Errorf("failed to create repository %s: %w", task, err)
		}
	} else {
		log.Println("Found existing repository: " + task)
	}

	// Attachments are written in submission order. A failed upsert aborts
	// the whole synchronization, which can leave the repository partially
	// updated; the remote history is the only record of how far we got.
	for _, file := range files {
		if err := s.upsertFile(ctx, repo, file); err != nil {
			return Result{}, err
		}
	}

	if err := s.upsertReadme(ctx, repo, task, round, brief); err != nil {
		return Result{}, err
	}

	if round == 1 {
		s.ensureLicense(ctx, repo)
	}

	commitSHA, err := s.client.LatestCommit(ctx, repo)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read latest commit: %w", err)
	}

	return Result{
		RepoURL:   repo.HTMLURL,
		CommitSHA: commitSHA,
		PagesURL:  fmt.Sprintf("https://%s.github.io/%s/", user.Login, task),
	}, nil
}

func (s *Synchronizer) upsertFile(ctx context.Context, repo hosting.Repo, file File) error {
	existing, found, err := s.client.GetFile(ctx, repo, file.Path)
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", file.Path, err)
	}
	if found {
		if err := s.client.UpdateFile(ctx, repo, file.Path, file.Content, existing.SHA, "Update "+file.Path); err != nil {
			return fmt.Errorf("failed to update %s: %w", file.Path, err)
		}
		log.Println("Updated file: " + file.Path)
		return nil
	}
	if err := s.client.CreateFile(ctx, repo, file.Path, file.Content, "Add "+file.Path); err != nil {
		return fmt.Errorf("failed to add %s: %w", file.Path, err)
	}
	log.Println("Added file: " + file.Path)
	return nil
}

func (s *Synchronizer) upsertReadme(ctx context.Context, repo hosting.Repo, task string, round int, brief string) error {
	section := renderRoundSection(round, brief, s.now())

	existing, found, err := s.client.GetFile(ctx, repo, "README.md")
	if err != nil {
		return fmt.Errorf("failed to look up README.md: %w", err)
	}

	if !found {
		content := fmt.Sprintf("# %s\n\n%s", task, section)
		if err := s.client.CreateFile(ctx, repo, "README.md", []byte(content), fmt.Sprintf("Add README Round %d", round)); err != nil {
			return fmt.Errorf("failed to add README.md: %w", err)
		}
		return nil
	}

	content := upsertRoundSection(string(existing.Content), round, section)
	message := fmt.Sprintf("Update README for Round %d", round)
	if err := s.client.UpdateFile(ctx, repo, "README.md", []byte(content), existing.SHA, message); err != nil {
		return fmt.Errorf("failed to update README.md: %w", err)
	}
	return nil
}

// ensureLicense creates an MIT LICENSE file once. Failures are swallowed,
// a missing license never blocks a synchronization.
func (s *Synchronizer) ensureLicense(ctx context.Context, repo hosting.Repo) {
	_, found, err := s.client.GetFile(ctx, repo, "LICENSE")
	if err != nil || found {
		return
	}
	text, err := s.client.LicenseText(ctx, "mit")
	if err != nil {
		log.Printf("Failed to fetch license text: %v\n", err)
		return
	}
	if err := s.client.CreateFile(ctx, repo, "LICENSE", []byte(text), "Add MIT License"); err != nil {
		log.Printf("Failed to add LICENSE: %v\n", err)
	}
}

func renderRoundSection(round int, brief string, now time.Time) string {
	return fmt.Sprintf("## Round %d Updates\n%s\nUpdated: %s", round, brief, now.UTC().Format(time.RFC3339))
}

// upsertRoundSection appends a round section to the README, or replaces the
// existing section for the same round so replays do not accumulate
// duplicates.
func upsertRoundSection(existing string, round int, section string) string {
	header := fmt.Sprintf("## Round %d Updates", round)
	idx := strings.Index(existing, header)
	if idx < 0 {
		return strings.TrimRight(existing, "\n") + "\n\n" + section
	}

	rest := existing[idx+len(header):]
	next := strings.Index(rest, "\n## Round ")
	if next < 0 {
		return existing[:idx] + section
	}
	return existing[:idx] + section + rest[next:]
}
