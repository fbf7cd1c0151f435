package szuru

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"szurutools/internal/services"
)

// APIError is a failed board request.
type APIError struct {
	Method  string
	URL     string
	Status  int
	Name    string
	Message string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "szuru %s %s failed %d", e.Method, e.URL, e.Status)
	switch {
	case e.Name != "" && e.Message != "":
		fmt.Fprintf(&b, ": %s: %s", e.Name, e.Message)
	case e.Name != "":
		fmt.Fprintf(&b, ": %s", e.Name)
	case e.Message != "":
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	return b.String()
}

// Unwrap exposes the services marker matching the response status.
func (e *APIError) Unwrap() error {
	return services.MarkerForStatus(e.Status)
}

// IsAlreadyExists reports whether err is the board refusing to create a
// resource that is already there.
func IsAlreadyExists(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusConflict || strings.HasSuffix(apiErr.Name, "AlreadyExistsError")
}
