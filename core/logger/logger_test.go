package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextWithLoggerKeepsExisting(t *testing.T) {
	ctx, rlog := ContextWithLogger(context.Background())
	id := RequestIDFromContext(ctx)
	require.NotEmpty(t, id)

	again, rlog2 := ContextWithLogger(ctx)
	assert.Equal(t, ctx, again)
	assert.Same(t, rlog, rlog2)
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
}

func TestContextWithLoggerScope(t *testing.T) {
	ctx, _ := ContextWithLogger(context.Background())
	id := RequestIDFromContext(ctx)

	ctx, rlog := ContextWithLoggerScope(ctx, "/collections/c1")
	assert.Equal(t, "/collections/c1", rlog.Data[scopeLoggerKey])
	assert.Equal(t, id, RequestIDFromContext(ctx))
	assert.Same(t, rlog, FromContext(ctx))
}

func TestAddRequestID(t *testing.T) {
	router := mux.NewRouter()
	AddRequestID(router)
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(RequestIDFromContext(r.Context())))
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	router.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Body.String())
	assert.NotEqual(t, "abc", rec.Body.String())
}
