package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("code") != "good" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-" + r.Form.Get("code_verifier"),
			"token_type":    "Bearer",
			"refresh_token": "refresh",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: "http://example.invalid/auth", TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
}

func TestOAuthHandler(t *testing.T) {
	t.Run("exchanges code with verifier", func(t *testing.T) {
		ts := tokenServer(t)
		h := NewOAuthHandler(testConfig(ts.URL), "xyz", oauth2.VerifierOption("ver"))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=xyz&code=good", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Signed in to tubetrack") {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
		res := <-h.Result()
		if res.Error() != nil {
			t.Fatalf("unexpected error: %v", res.Error())
		}
		if res.Token.AccessToken != "access-ver" {
			t.Errorf("access token = %q, want access-ver", res.Token.AccessToken)
		}
	})

	t.Run("rejects state mismatch", func(t *testing.T) {
		h := NewOAuthHandler(testConfig("http://unused"), "xyz")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=bad&code=good", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if res := <-h.Result(); res.Error() == nil {
			t.Error("expected state error")
		}
	})

	t.Run("reports provider error", func(t *testing.T) {
		h := NewOAuthHandler(testConfig("http://unused"), "xyz")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=xyz&error=access_denied", nil))

		res := <-h.Result()
		if res.Error() == nil || !strings.Contains(res.Error().Error(), "access_denied") {
			t.Errorf("error = %v, want access_denied", res.Error())
		}
		if !strings.Contains(rec.Body.String(), "Sign-in cancelled") {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("rejects replayed callback", func(t *testing.T) {
		ts := tokenServer(t)
		h := NewOAuthHandler(testConfig(ts.URL), "xyz")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=xyz&code=good", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=xyz&code=good", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("failed exchange", func(t *testing.T) {
		ts := tokenServer(t)
		h := NewOAuthHandler(testConfig(ts.URL), "xyz")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=xyz&code=bad", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
		if res := <-h.Result(); res.Error() == nil {
			t.Error("expected exchange error")
		}
	})
}

func TestBasicRouter(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	r := NewBasicRouter()
	r.Use(mw("outer"), mw("inner"))
	r.Handle("post", "/items", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items", nil))
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if strings.Join(order, ",") != "outer,inner" {
		t.Errorf("middleware order = %v", order)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestCallbackServer(t *testing.T) {
	r := NewBasicRouter()
	r.Use(RequestLogger(log.New(io.Discard)))
	r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	srv, err := Listen("127.0.0.1:0", r, log.New(io.Discard))
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer srv.Shutdown(context.Background())

	u, err := url.Parse(srv.URL("/ping"))
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if u.Port() == "0" || u.Port() == "" {
		t.Errorf("expected bound port, got %q", u.Port())
	}

	resp, err := http.Get(u.String())
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("status = %d, want 418", resp.StatusCode)
	}
}
