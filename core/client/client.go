// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package client provides access to the REST api of the NB-IoT service

The client either talks HTTP to a remote address, or directly to a mux router. The
latter is the tool of choice for unit tests against an in-process fake of the API.

Every request carries the API token in the X-API-Token header and uses JSON for the
request and response bodies. Responses with a status code outside of 2xx are returned
as *APIError. Requests are never retried.
*/
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/goccy/go-json"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/nbiot/core/logger"
)

// TokenHeader is the header that carries the API token
const TokenHeader = "X-API-Token"

// APIError is returned for every response with a status code outside of 2xx. Message
// is the body of the response as sent by the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, strings.TrimSpace(e.Message))
}

// Client provides easy access to the REST API.
type Client struct {
	router     *mux.Router
	httpClient *http.Client
	url        string
	token      string
	ctx        context.Context

	defaultHeaders map[string]string
}

// NewWithRouter creates a client to make pseudo-REST requests to the backend,
// through the mux router
//
// WithContext() specifies a different base context all together.
func NewWithRouter(router *mux.Router) Client {
	return Client{
		router:         router,
		defaultHeaders: map[string]string{},
	}
}

// NewWithURL creates a client to make REST requests to the backend at url
//
// WithToken adds the API token to the request header.
func NewWithURL(url string) Client {
	return Client{
		url:            strings.TrimSuffix(url, "/"),
		httpClient:     &http.Client{},
		defaultHeaders: map[string]string{},
	}
}

// WithHeader returns a new client with a default header added
func (c Client) WithHeader(key string, value string) Client {
	headers := make(map[string]string, len(c.defaultHeaders)+1)
	for k, v := range c.defaultHeaders {
		headers[k] = v
	}
	headers[key] = value
	c.defaultHeaders = headers
	return c
}

// WithToken returns a new client which authenticates with token
func (c Client) WithToken(token string) Client {
	c.token = token
	return c
}

// WithHTTPClient returns a new client which uses httpClient for HTTP requests
func (c Client) WithHTTPClient(httpClient *http.Client) Client {
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c
}

// WithContext returns a new client with specific request context
func (c Client) WithContext(ctx context.Context) Client {
	c.ctx = ctx
	return c
}

// Context returns the request context of the client
func (c Client) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// URL returns the base address of the API. It is empty for clients on a router.
func (c Client) URL() string {
	return c.url
}

// Token returns the API token
func (c Client) Token() string {
	return c.token
}

// Router returns the router of an in-process client, or nil
func (c Client) Router() *mux.Router {
	return c.router
}

// Request executes method on path. body is marshalled to JSON unless it is nil or
// already a []byte. The response body of a successful request is unmarshalled into
// result, unless result is nil or the method is DELETE. result can also be a raw *[]byte.
//
// Any status code outside of 2xx is returned as *APIError.
func (c Client) Request(method, path string, body interface{}, result interface{}) error {
	_, err := c.do(method, path, body, result)
	return err
}

// RawGet gets the resource from path. Returns the actual http status code.
//
// The path can be extend with query strings.
func (c Client) RawGet(path string, result interface{}) (int, error) {
	return c.do(http.MethodGet, path, nil, result)
}

// RawPost posts body to path and reads the response into result. Returns the
// actual http status code.
func (c Client) RawPost(path string, body interface{}, result interface{}) (int, error) {
	return c.do(http.MethodPost, path, body, result)
}

// RawPatch patches the resource at path with body and reads the response into result.
// Returns the actual http status code.
func (c Client) RawPatch(path string, body interface{}, result interface{}) (int, error) {
	return c.do(http.MethodPatch, path, body, result)
}

// RawDelete deletes the resource at path. Returns the actual http status code.
func (c Client) RawDelete(path string) (int, error) {
	return c.do(http.MethodDelete, path, nil, nil)
}

func (c Client) do(method, path string, body interface{}, result interface{}) (int, error) {
	var reqBody io.Reader
	if body != nil {
		j, ok := body.([]byte)
		if !ok {
			var err error
			j, err = json.Marshal(body)
			if err != nil {
				return http.StatusBadRequest, fmt.Errorf("cannot marshal request body: %w", err)
			}
		}
		reqBody = bytes.NewReader(j)
	}

	ctx, rlog := logger.ContextWithLogger(c.Context())
	r, err := http.NewRequestWithContext(ctx, method, c.url+path, reqBody)
	if err != nil {
		return 0, fmt.Errorf("cannot create request: %w", err)
	}
	for key, value := range c.defaultHeaders {
		r.Header.Set(key, value)
	}
	r.Header.Set(TokenHeader, c.token)
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	if id := logger.RequestIDFromContext(ctx); id != "" {
		r.Header.Set(logger.RequestIDHeader, id)
	}

	var status int
	var resBody []byte
	if c.router != nil {
		rec := httptest.NewRecorder()
		c.router.ServeHTTP(rec, r)
		res := rec.Result()
		status = res.StatusCode
		resBody = rec.Body.Bytes()
	} else {
		res, err := c.httpClient.Do(r)
		if err != nil {
			rlog.WithError(err).Debugf("%s %s failed", method, path)
			return 0, err
		}
		defer res.Body.Close()
		status = res.StatusCode
		resBody, err = io.ReadAll(res.Body)
		if err != nil {
			return status, fmt.Errorf("cannot read response body: %w", err)
		}
	}
	rlog.Debugf("%s %s: %d", method, path, status)

	if status < 200 || status > 299 {
		return status, &APIError{StatusCode: status, Message: string(resBody)}
	}

	if method == http.MethodDelete || result == nil || len(resBody) == 0 {
		return status, nil
	}
	if raw, ok := result.(*[]byte); ok {
		*raw = resBody
		return status, nil
	}
	if err := json.Unmarshal(resBody, result); err != nil {
		return status, fmt.Errorf("cannot decode response of %s %s: %w", method, path, err)
	}
	return status, nil
}
