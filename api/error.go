package api

import "fmt"

// StatusError is non-2xx HTTP response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s status=%d body=%q", e.Method, e.URL, e.StatusCode, e.Body)
}

// DataError is response JSON not matching expected format, keeps received document.
type DataError struct {
	URL  string
	Body []byte
	Err  error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("unexpected data from %s: %v document=%s", e.URL, e.Err, e.Body)
}
func (e *DataError) Unwrap() error { return e.Err }
