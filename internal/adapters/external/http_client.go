package external

import "net/http"

// HTTPClient is the subset of *http.Client the outbound adapters use
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
