package httpclient

import "context"

//go:generate mockgen -package=proxy_test -destination=../proxy/mock_httpclient_test.go -source=interfaces.go Client,Response

// Response is a minimal HTTP response contract. The body stream is handed
// back unread so callers can tell a failed read from a failed request.
type Response interface {
	StatusCode() int
	Status() string
	// ReadBody drains and closes the body. It must be called exactly once.
	ReadBody() ([]byte, error)
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}
