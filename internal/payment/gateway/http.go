package gateway

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds every outbound provider call unless overridden.
const DefaultTimeout = 15 * time.Second

// HTTPClient wraps resty for provider calls. Retries stay disabled: a
// retried payment creation can double charge.
type HTTPClient struct {
	r *resty.Client
}

// Response is a provider reply with any status code.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// NewHTTPClient creates a client with the given timeout.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	return &HTTPClient{r: r}
}

// Request starts a request bound to ctx.
func (c *HTTPClient) Request(ctx context.Context) *resty.Request {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.r.R().SetContext(ctx)
}

// Execute sends req. Transport errors are classified as ErrAmbiguous
// (timeouts) or ErrRequestFailed; non-2xx replies are returned as-is.
func (c *HTTPClient) Execute(req *resty.Request, method, url string) (*Response, error) {
	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	return &Response{StatusCode: resp.StatusCode(), Body: resp.Body()}, nil
}
