package cbr

import "net/http"

//go:generate mockgen -package=cbr -destination=mock_http_client_test.go -source=client.go HTTPClient

// HTTPClient is the part of *http.Client the service needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
