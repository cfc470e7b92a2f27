package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		path   string
		header string
		want   int
	}{
		{name: "no keys", path: "/api/v1/games", want: http.StatusOK},
		{name: "blank keys", keys: []string{"", ""}, path: "/api/v1/games", want: http.StatusOK},
		{name: "missing header", keys: []string{"secret"}, path: "/api/v1/games", want: http.StatusUnauthorized},
		{name: "basic scheme", keys: []string{"secret"}, path: "/api/v1/games", header: "Basic dXNlcjpwYXNz", want: http.StatusUnauthorized},
		{name: "wrong key", keys: []string{"secret"}, path: "/api/v1/games", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "valid key", keys: []string{"secret"}, path: "/api/v1/games", header: "Bearer secret", want: http.StatusOK},
		{name: "second key", keys: []string{"k1", "k2"}, path: "/api/v1/score", header: "Bearer k2", want: http.StatusOK},
		{name: "lowercase scheme", keys: []string{"secret"}, path: "/api/v1/games", header: "bearer secret", want: http.StatusOK},
		{name: "scheme only", keys: []string{"secret"}, path: "/api/v1/games", header: "Bearer", want: http.StatusUnauthorized},
		{name: "health exempt", keys: []string{"secret"}, path: "/health", want: http.StatusOK},
		{name: "metrics exempt", keys: []string{"secret"}, path: "/metrics", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := BearerAuthMiddleware(tt.keys)(okHandler())
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("got %d, want %d", rr.Code, tt.want)
			}
			if tt.want != http.StatusUnauthorized {
				return
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Code != CodeUnauthorized {
				t.Errorf("code: got %s, want %s", resp.Code, CodeUnauthorized)
			}
			if rr.Header().Get("WWW-Authenticate") == "" {
				t.Error("401 should carry a WWW-Authenticate challenge")
			}
		})
	}
}
