package hosting

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"
)

// GithubClient talks to the GitHub REST API v3.
type GithubClient struct {
	apiBase string
	token   string
	client  *http.Client
}

// NewGithubClient returns a client bound to one bearer token. All calls share
// a single http.Client with the given timeout.
func NewGithubClient(apiBase, token string, timeout time.Duration) *GithubClient {
	return &GithubClient{
		apiBase: strings.TrimSuffix(apiBase, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type apiMessage struct {
	Message string `json:"message"`
}

// do performs one API call and decodes the response body into out when the
// status is 2xx. The caller gets the status code either way.
func (g *GithubClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) (int, error) {
	var reader *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	request, err := http.NewRequestWithContext(ctx, method, g.apiBase+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+g.token)
	request.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := g.client.Do(request)
	if err != nil {
		return 0, fmt.Errorf("hosting API request failed: %w", err)
	}
	defer response.Body.Close()

	data, err := ioutil.ReadAll(response.Body)
	if err != nil {
		return response.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if response.StatusCode >= http.StatusOK && response.StatusCode < http.StatusMultipleChoices {
		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return response.StatusCode, fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return response.StatusCode, nil
	}

	message := apiMessage{}
	json.Unmarshal(data, &message)
	return response.StatusCode, &APIError{StatusCode: response.StatusCode, Message: message.Message}
}

func (g *GithubClient) CurrentUser(ctx context.Context) (User, error) {
	var user User
	_, err := g.do(ctx, http.MethodGet, "/user", nil, &user)
	return user, err
}

func (g *GithubClient) GetRepo(ctx context.Context, owner, name string) (Repo, bool, error) {
	var repo Repo
	status, err := g.do(ctx, http.MethodGet, "/repos/"+owner+"/"+name, nil, &repo)
	if status == http.StatusNotFound {
		return Repo{}, false, nil
	}
	if err != nil {
		return Repo{}, false, err
	}
	return repo, true, nil
}

func (g *GithubClient) CreateRepo(ctx context.Context, name string) (Repo, error) {
	var repo Repo
	body := map[string]interface{}{
		"name":    name,
		"private": false,
	}
	_, err := g.do(ctx, http.MethodPost, "/user/repos", body, &repo)
	return repo, err
}

type contentsResponse struct {
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func (g *GithubClient) GetFile(ctx context.Context, repo Repo, path string) (File, bool, error) {
	var contents contentsResponse
	status, err := g.do(ctx, http.MethodGet, "/repos/"+repo.FullName+"/contents/"+path, nil, &contents)
	if status == http.StatusNotFound {
		return File{}, false, nil
	}
	if err != nil {
		return File{}, false, err
	}

	// The contents API wraps base64 at 60 columns.
	raw := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, contents.Content)
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return File{}, false, fmt.Errorf("failed to decode file content for %s: %w", path, err)
	}

	return File{Path: contents.Path, SHA: contents.SHA, Content: decoded}, true, nil
}

func (g *GithubClient) CreateFile(ctx context.Context, repo Repo, path string, content []byte, message string) error {
	body := map[string]interface{}{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
	}
	_, err := g.do(ctx, http.MethodPut, "/repos/"+repo.FullName+"/contents/"+path, body, nil)
	return err
}

func (g *GithubClient) UpdateFile(ctx context.Context, repo Repo, path string, content []byte, sha, message string) error {
	body := map[string]interface{}{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"sha":     sha,
	}
	_, err := g.do(ctx, http.MethodPut, "/repos/"+repo.FullName+"/contents/"+path, body, nil)
	return err
}

type commitResponse struct {
	SHA string `json:"sha"`
}

func (g *GithubClient) LatestCommit(ctx context.Context, repo Repo) (string, error) {
	var commits []commitResponse
	_, err := g.do(ctx, http.MethodGet, "/repos/"+repo.FullName+"/commits?per_page=1", nil, &commits)
	if err != nil {
		return "", err
	}
	if len(commits) == 0 {
		return "", fmt.Errorf("repository %s has no commits", repo.FullName)
	}
	return commits[0].SHA, nil
}

type licenseResponse struct {
	Body string `json:"body"`
}

func (g *GithubClient) LicenseText(ctx context.Context, key string) (string, error) {
	var license licenseResponse
	_, err := g.do(ctx, http.MethodGet, "/licenses/"+key, nil, &license)
	if err != nil {
		return "", err
	}
	return license.Body, nil
}
