package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveCORS(t *testing.T, allowed, method, origin string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	called := false
	handler := NewCORSMiddleware(allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(method, "/api/posts", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, called
}

func TestCORSMiddleware_AllowOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed string
		origin  string
		want    string
	}{
		{"wildcard", "*", "https://blog.example.com", "*"},
		{"empty means wildcard", "", "https://blog.example.com", "*"},
		{"listed origin echoed", "https://blog.example.com, https://admin.example.com", "https://admin.example.com", "https://admin.example.com"},
		{"trailing slash in config", "https://blog.example.com/", "https://blog.example.com", "https://blog.example.com"},
		{"unlisted origin", "https://blog.example.com", "https://evil.example.com", ""},
		{"no origin header", "https://blog.example.com", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, called := serveCORS(t, tt.allowed, http.MethodGet, tt.origin)
			if !called {
				t.Fatal("next handler should be called for GET")
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.want)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
				t.Errorf("Access-Control-Allow-Credentials = %q, want empty", got)
			}
		})
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	rec, called := serveCORS(t, "https://blog.example.com", http.MethodOptions, "https://blog.example.com")

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if called {
		t.Error("next handler should not be called for OPTIONS preflight")
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != corsAllowHeaders {
		t.Errorf("Access-Control-Allow-Headers = %q, want %q", got, corsAllowHeaders)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != corsAllowMethods {
		t.Errorf("Access-Control-Allow-Methods = %q, want %q", got, corsAllowMethods)
	}
	if got := rec.Header().Get("Vary"); got != "Origin" {
		t.Errorf("Vary = %q, want Origin", got)
	}
}

func TestCORSMiddleware_WildcardOmitsVary(t *testing.T) {
	rec, _ := serveCORS(t, "*", http.MethodPost, "https://blog.example.com")

	if got := rec.Header().Get("Vary"); got != "" {
		t.Errorf("Vary = %q, want empty", got)
	}
}
