package nbiottest

import (
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/relabs-tech/nbiot/core/client"
	"github.com/relabs-tech/nbiot/core/logger"
)

func (s *Server) handleCompression() {

	compressionMiddleware := func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlers.CompressHandler(h).ServeHTTP(w, r)
		})
	}
	s.Router.Use(compressionMiddleware)
}

// handleAuthentication rejects every request that does not carry the token of the server
func (s *Server) handleAuthentication() {

	authMiddleware := func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(client.TokenHeader) != s.Token {
				logger.FromContext(r.Context()).Warnf("rejected %s %s: invalid token", r.Method, r.URL.Path)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			h.ServeHTTP(w, r)
		})
	}
	s.Router.Use(authMiddleware)
}
