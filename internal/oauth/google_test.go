package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func newTestGoogleServer(t *testing.T, userInfo string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"ya29.test","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer ya29.test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(userInfo))
	})
	return httptest.NewServer(mux)
}

func newTestProvider(srv *httptest.Server) *GoogleProvider {
	p := NewGoogleProvider("client-id", "client-secret", "http://localhost:3000/api/users/auth/google/callback")
	p.config.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	p.userInfoURL = srv.URL + "/userinfo"
	p.httpClient = srv.Client()
	return p
}

func TestGoogleProvider_AuthURL(t *testing.T) {
	p := NewGoogleProvider("client-id", "client-secret", "http://localhost:3000/cb")
	raw := p.AuthURL("state-123")

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "state-123" || q.Get("client_id") != "client-id" || q.Get("redirect_uri") != "http://localhost:3000/cb" {
		t.Fatalf("unexpected auth url query: %s", raw)
	}
	if !strings.Contains(q.Get("scope"), "email") {
		t.Fatalf("expected email scope, got %q", q.Get("scope"))
	}
}

func TestGoogleProvider_ResolveProfile(t *testing.T) {
	srv := newTestGoogleServer(t, `{"sub":"g-123","email":"carol@x.com","email_verified":true,"name":"Carol","picture":"https://x/p.png"}`)
	defer srv.Close()

	profile, err := newTestProvider(srv).ResolveProfile(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("resolve profile: %v", err)
	}
	if profile.Provider != "google" || profile.ProviderUserID != "g-123" || profile.Email != "carol@x.com" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if profile.AccessToken != "ya29.test" || profile.PictureURL != "https://x/p.png" {
		t.Fatalf("unexpected profile extras: %+v", profile)
	}
}

func TestGoogleProvider_ResolveProfileErrors(t *testing.T) {
	srv := newTestGoogleServer(t, `{"sub":"g-123","email":"carol@x.com","email_verified":false}`)
	defer srv.Close()
	p := newTestProvider(srv)

	if _, err := p.ResolveProfile(context.Background(), "bad-code"); !errors.Is(err, ErrExchangeFailed) {
		t.Fatalf("expected ErrExchangeFailed, got %v", err)
	}
	if _, err := p.ResolveProfile(context.Background(), ""); !errors.Is(err, ErrExchangeFailed) {
		t.Fatalf("expected ErrExchangeFailed on empty code, got %v", err)
	}
	if _, err := p.ResolveProfile(context.Background(), "good-code"); !errors.Is(err, ErrEmailUnverified) {
		t.Fatalf("expected ErrEmailUnverified, got %v", err)
	}
}

func TestNewState(t *testing.T) {
	a, err := NewState()
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	b, _ := NewState()
	if a == "" || a == b {
		t.Fatalf("expected distinct non-empty states")
	}
}
