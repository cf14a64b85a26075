package hosting

import "fmt"

// APIError represents a non-success response from the hosting API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("hosting API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("hosting API returned status %d: %s", e.StatusCode, e.Message)
}
