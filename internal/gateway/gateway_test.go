package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newIDP(t *testing.T, baseURL string) *HTTPIdentityProvider {
	t.Helper()
	idp, err := NewHTTPIdentityProvider(Options{IDPBaseURL: baseURL, Token: "tok-123", RPS: 1000})
	if err != nil {
		t.Fatalf("NewHTTPIdentityProvider: %v", err)
	}
	return idp
}

func TestLookupByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		if r.URL.Path != "/users-by-email" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		switch r.URL.Query().Get("email") {
		case "a@x.com":
			w.Write([]byte(`[{"user_id":"auth0|123","email":"a@x.com"}]`))
		case "ghost@x.com":
			w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("rate limited"))
		}
	}))
	defer srv.Close()

	idp := newIDP(t, srv.URL)
	ctx := context.Background()

	id, res, err := idp.LookupByEmail(ctx, "a@x.com")
	if err != nil || id != "auth0|123" || res.Status != 200 {
		t.Fatalf("lookup = (%q, %+v, %v)", id, res, err)
	}

	id, res, err = idp.LookupByEmail(ctx, "ghost@x.com")
	if err != nil || id != "" || res.Status != 200 {
		t.Fatalf("empty lookup = (%q, %+v, %v)", id, res, err)
	}

	id, res, err = idp.LookupByEmail(ctx, "throttled@x.com")
	if err != nil || id != "" || res.Status != http.StatusTooManyRequests {
		t.Fatalf("throttled lookup = (%q, %+v, %v)", id, res, err)
	}
	if res.Detail != "rate limited" {
		t.Fatalf("detail = %q", res.Detail)
	}
}

func TestDeleteAndGetUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/auth0|123" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			w.Write([]byte(`{"user_id":"auth0|123"}`))
		}
	}))
	defer srv.Close()

	idp := newIDP(t, srv.URL)
	ctx := context.Background()

	res, err := idp.DeleteUser(ctx, "auth0|123")
	if err != nil || res.Status != http.StatusNoContent {
		t.Fatalf("delete = (%+v, %v)", res, err)
	}
	res, err = idp.GetUser(ctx, "auth0|123")
	if err != nil || res.Status != http.StatusOK {
		t.Fatalf("get = (%+v, %v)", res, err)
	}
	res, err = idp.DeleteUser(ctx, "auth0|999")
	if err != nil || res.Status != http.StatusNotFound {
		t.Fatalf("delete missing = (%+v, %v)", res, err)
	}
}

func TestDirectoryClient(t *testing.T) {
	deleted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/email/a@x.com" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		switch r.Method {
		case http.MethodDelete:
			if deleted {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			deleted = true
		case http.MethodGet:
			if deleted {
				w.WriteHeader(http.StatusNotFound)
			}
		}
	}))
	defer srv.Close()

	dir, err := NewHTTPDirectory(Options{DirectoryBaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewHTTPDirectory: %v", err)
	}
	ctx := context.Background()

	res, err := dir.DeleteByEmail(ctx, "a@x.com")
	if err != nil || res.Status != http.StatusOK {
		t.Fatalf("delete = (%+v, %v)", res, err)
	}
	res, err = dir.DeleteByEmail(ctx, "a@x.com")
	if err != nil || res.Status != http.StatusNotFound {
		t.Fatalf("second delete = (%+v, %v)", res, err)
	}
	res, err = dir.GetByEmail(ctx, "a@x.com")
	if err != nil || res.Status != http.StatusNotFound {
		t.Fatalf("get after delete = (%+v, %v)", res, err)
	}
}

func TestCompactDetail(t *testing.T) {
	long := strings.Repeat("x", 500) + "\nsecond line\r\n"
	got := CompactDetail([]byte(long))
	if len(got) > 200 {
		t.Fatalf("detail too long: %d", len(got))
	}
	if strings.ContainsAny(got, "\r\n") {
		t.Fatalf("detail contains newlines: %q", got)
	}
	if CompactDetail([]byte("  short\nbody  ")) != "short body" {
		t.Fatalf("compact = %q", CompactDetail([]byte("  short\nbody  ")))
	}
}

func TestNewUnknownKind(t *testing.T) {
	if _, _, err := New(Options{Kind: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestMockEndToEnd(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	id, _, err := m.LookupByEmail(ctx, "a@x.com")
	if err != nil || id == "" {
		t.Fatalf("lookup = (%q, %v)", id, err)
	}
	if res, _ := m.DeleteUser(ctx, id); res.Status != http.StatusNoContent {
		t.Fatalf("delete status = %d", res.Status)
	}
	if res, _ := m.DeleteUser(ctx, id); res.Status != http.StatusNotFound {
		t.Fatalf("second delete status = %d", res.Status)
	}
	if res, _ := m.GetUser(ctx, id); res.Status != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", res.Status)
	}

	m.ForgetEmail("ghost@x.com")
	if id, _, _ := m.LookupByEmail(ctx, "ghost@x.com"); id != "" {
		t.Fatalf("forgotten email resolved to %q", id)
	}
}
