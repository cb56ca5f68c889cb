package apim

import (
	"errors"
	"fmt"
)

var (
	errEmptyToken   = errors.New("identity provider returned an empty token")
	errNoCredential = errors.New("no credential configured")
)

// AuthError means we couldn't get a bearer token for the management API.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("apim: couldn't acquire access token: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// HTTPError is returned for any management API response outside 200/201/202.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       []byte
}

func (e *HTTPError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("apim: %s %s: %s", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("apim: %s %s: %s: %s", e.Method, e.URL, e.Status, e.Body)
}

// IsNotFound reports whether err is an HTTPError with status 404.
func IsNotFound(err error) bool {
	var herr *HTTPError
	return errors.As(err, &herr) && herr.StatusCode == 404
}
