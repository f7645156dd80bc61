package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/nbiot/core/logger"
)

type thing struct {
	ID   string `json:"thingId"`
	Name string `json:"name"`
}

func newTestRouter(t *testing.T) *mux.Router {
	router := mux.NewRouter()
	logger.AddRequestID(router)

	router.HandleFunc("/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(TokenHeader) != "secret" {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		id := mux.Vars(r)["id"]
		if id != "t1" {
			http.Error(w, "thing "+id+" not found", http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"thingId":"t1","name":"one"}`))
		case http.MethodPatch:
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			body, _ := io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "application/json")
			w.Write(body)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	}).Methods(http.MethodGet, http.MethodPatch, http.MethodDelete)

	router.HandleFunc("/things", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"thingId":"t2","name":"two"}`))
	}).Methods(http.MethodPost)

	router.HandleFunc("/padded-error", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("  not found\n"))
	}).Methods(http.MethodGet)

	router.HandleFunc("/echo-request-id", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"` + logger.RequestIDFromContext(r.Context()) + `"`))
	}).Methods(http.MethodGet)

	return router
}

func testClients(t *testing.T) map[string]Client {
	router := newTestRouter(t)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return map[string]Client{
		"router": NewWithRouter(router).WithToken("secret"),
		"http":   NewWithURL(server.URL + "/").WithToken("secret"),
	}
}

func TestClientRequests(t *testing.T) {
	for name, c := range testClients(t) {
		t.Run(name, func(t *testing.T) {
			var got thing
			status, err := c.RawGet("/things/t1", &got)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, thing{ID: "t1", Name: "one"}, got)

			got = thing{}
			require.NoError(t, c.Request(http.MethodPatch, "/things/t1", thing{ID: "t1", Name: "renamed"}, &got))
			assert.Equal(t, "renamed", got.Name)

			status, err = c.RawPost("/things", thing{Name: "two"}, &got)
			require.NoError(t, err)
			assert.Equal(t, http.StatusCreated, status)
			assert.Equal(t, "t2", got.ID)

			var raw []byte
			_, err = c.RawGet("/things/t1", &raw)
			require.NoError(t, err)
			assert.JSONEq(t, `{"thingId":"t1","name":"one"}`, string(raw))

			status, err = c.RawDelete("/things/t1")
			require.NoError(t, err)
			assert.Equal(t, http.StatusNoContent, status)
		})
	}
}

func TestClientAPIError(t *testing.T) {
	for name, c := range testClients(t) {
		t.Run(name, func(t *testing.T) {
			var got thing
			status, err := c.RawGet("/things/nope", &got)
			assert.Equal(t, http.StatusNotFound, status)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "unexpected error %v", err)
			assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
			assert.Equal(t, "thing nope not found\n", apiErr.Message)
			assert.Equal(t, "api returned status 404: thing nope not found", apiErr.Error())
			assert.Equal(t, thing{}, got)

			err = c.WithToken("wrong").Request(http.MethodDelete, "/things/t1", nil, nil)
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
			assert.Equal(t, "invalid token\n", apiErr.Message)
		})
	}
}

func TestClientAPIErrorKeepsBody(t *testing.T) {
	for name, c := range testClients(t) {
		t.Run(name, func(t *testing.T) {
			_, err := c.RawGet("/padded-error", nil)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "unexpected error %v", err)
			assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
			assert.Equal(t, "  not found\n", apiErr.Message)
			assert.Equal(t, "api returned status 404: not found", apiErr.Error())
		})
	}
}

func TestClientDeleteReturnsNothing(t *testing.T) {
	c := testClients(t)["router"]
	got := thing{Name: "untouched"}
	require.NoError(t, c.Request(http.MethodDelete, "/things/t1", nil, &got))
	assert.Equal(t, thing{Name: "untouched"}, got)
}

func TestClientRequestID(t *testing.T) {
	for name, c := range testClients(t) {
		t.Run(name, func(t *testing.T) {
			ctx, _ := logger.ContextWithLogger(context.Background())
			var id string
			require.NoError(t, c.WithContext(ctx).Request(http.MethodGet, "/echo-request-id", nil, &id))
			assert.Equal(t, logger.RequestIDFromContext(ctx), id)
			assert.NotEmpty(t, id)
		})
	}
}

func TestClientWithHeaderCopies(t *testing.T) {
	base := NewWithURL("http://localhost")
	a := base.WithHeader("X-A", "a")
	b := base.WithHeader("X-B", "b")
	assert.Empty(t, base.defaultHeaders)
	assert.Equal(t, map[string]string{"X-A": "a"}, a.defaultHeaders)
	assert.Equal(t, map[string]string{"X-B": "b"}, b.defaultHeaders)
	assert.Equal(t, "http://localhost", base.URL())
}

func TestClientConnectionError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	_, err := NewWithURL(url).RawGet("/", nil)
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
