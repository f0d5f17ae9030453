package common

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gravitational/trace"
	"github.com/rs/zerolog/log"
)

// RequestObserver gets notified about every request performed by the proxy
type RequestObserver interface {
	ObserveRequest(route string, status int, elapsed time.Duration)
}

// Request describes a single call performed through the proxy
type Request struct {
	Method string
	// Route names the endpoint for logging and metrics
	Route  string
	URL    string
	Header map[string]string
}

// Response is what is left of an http response after the body has been read
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type Proxy struct {
	header      map[string]string
	client      *resty.Client
	rateLimiter *RateLimiter
	observer    RequestObserver
}

// NewProxy creates a proxy against the provided base url.
// The header is attached to every request
func NewProxy(baseURL string, header map[string]string, timeout time.Duration, rateLimiter *RateLimiter, observer RequestObserver) *Proxy {
	client := resty.NewWithClient(&http.Client{Timeout: timeout}).
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
	return &Proxy{header: header, client: client, rateLimiter: rateLimiter, observer: observer}
}

// HTTPClient exposes the underlying client so that other libraries
// talking to the same server share the transport
func (proxy *Proxy) HTTPClient() *http.Client {
	return proxy.client.GetClient()
}

// Wait blocks until the rate limiter allows one more request.
// Only needed by callers that send requests without going through Do
func (proxy *Proxy) Wait(ctx context.Context) error {
	return proxy.rateLimiter.Wait(ctx)
}

// Do performs the request once the rate limiter allows it.
// Any status outside the 2xx range is returned as a RequestError
func (proxy *Proxy) Do(ctx context.Context, request Request) (*Response, error) {

	// ask for permission to execute the request
	// and wait if necessary
	if err := proxy.rateLimiter.Wait(ctx); err != nil {
		return nil, trace.Wrap(err)
	}

	method := request.Method
	if method == "" {
		method = http.MethodGet
	}

	// Create the request and add the headers
	req := proxy.client.R().SetContext(ctx)
	for key, value := range proxy.header {
		req.SetHeader(key, value)
	}
	for key, value := range request.Header {
		req.SetHeader(key, value)
	}

	// Perform the request
	logger := log.Ctx(ctx)
	logger.Debug().Str("method", method).Str("url", request.URL).Msg("Requesting")
	start := time.Now()
	res, err := req.Execute(method, request.URL)
	if err != nil {
		logger.Error().Err(err).Str("url", request.URL).Msg("Could not perform request")
		return nil, trace.ConnectionProblem(err, "could not perform request to %s", request.URL)
	}
	elapsed := time.Since(start)
	if proxy.observer != nil {
		proxy.observer.ObserveRequest(request.Route, res.StatusCode(), elapsed)
	}
	logger.Debug().Int("status", res.StatusCode()).Dur("elapsed", elapsed).Msg(http.StatusText(res.StatusCode()))

	if !res.IsSuccess() {
		requestErr := &RequestError{
			Method:     method,
			URL:        request.URL,
			StatusCode: res.StatusCode(),
			Body:       string(res.Body()),
		}
		logger.Error().Err(requestErr).Str("url", request.URL).Int("status", requestErr.StatusCode).Msg("Request failed")
		return nil, trace.Wrap(requestErr)
	}

	return &Response{StatusCode: res.StatusCode(), Header: res.Header(), Body: res.Body()}, nil
}
