package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Options tunes a RestyClient. Zero values keep the resty defaults.
type Options struct {
	Timeout   time.Duration
	UserAgent string
}

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient creates a new RestyClient with the specified options.
func NewRestyClient(opts Options) *RestyClient {
	return &RestyClient{client: newRestyBaseClient(opts)}
}

// newRestyBaseClient creates a new resty.Client. Retries and the cookie jar
// stay disabled.
func newRestyBaseClient(opts Options) *resty.Client {
	c := resty.New()
	c.SetRetryCount(0)
	c.SetCookieJar(nil)
	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}
	if opts.UserAgent != "" {
		c.SetHeader("User-Agent", opts.UserAgent)
	}
	return c
}

// Get performs an HTTP GET request with the specified context, URL, and headers.
func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	req := r.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) StatusCode() int { return r.resp.StatusCode() }

func (r *restyResponseAdapter) Status() string {
	if s := r.resp.Status(); s != "" {
		return s
	}
	code := r.resp.StatusCode()
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}

func (r *restyResponseAdapter) ReadBody() ([]byte, error) {
	body := r.resp.RawBody()
	if body == nil {
		return nil, nil
	}
	defer body.Close()
	return io.ReadAll(body)
}
