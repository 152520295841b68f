package hur_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/WhileEndless/go-hur"
	"github.com/WhileEndless/go-hur/pkg/errors"
)

func clearProxyEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"http_proxy", "HTTP_PROXY", "https_proxy", "HTTPS_PROXY", "no_proxy", "NO_PROXY"} {
		t.Setenv(name, "")
	}
}

func TestDoFollowsRedirects(t *testing.T) {
	clearProxyEnv(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s %s", r.Method, r.Header.Get("User-Agent"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := hur.Do(context.Background(), "GET", srv.URL+"/old", nil, nil)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	want := "GET hur/" + hur.Version
	if resp.StatusCode != 200 || resp.Body == nil || *resp.Body != want {
		t.Errorf("got %d %v, want 200 %q", resp.StatusCode, resp.Body, want)
	}
}

func TestDoRejectsBadURL(t *testing.T) {
	tests := map[string]error{
		"ftp://example.com/": errors.ErrUnsupportedScheme,
		"/relative/only":     errors.ErrMissingHost,
	}
	for raw, want := range tests {
		_, err := hur.Do(context.Background(), "GET", raw, nil, nil)
		if !stderrors.Is(err, want) {
			t.Errorf("Do(%q) error = %v, want %v", raw, err, want)
		}
	}
}
