package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"footballapp/internal/domain"
	"footballapp/internal/oauth"
	"footballapp/internal/service"
	"footballapp/internal/sportsdata"
)

type fakeOAuthProvider struct {
	profile oauth.Profile
	err     error
}

func (p *fakeOAuthProvider) ProviderID() string { return "google" }

func (p *fakeOAuthProvider) AuthURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (p *fakeOAuthProvider) ResolveProfile(_ context.Context, code string) (oauth.Profile, error) {
	if p.err != nil {
		return oauth.Profile{}, p.err
	}
	if code != "good-code" {
		return oauth.Profile{}, oauth.ErrExchangeFailed
	}
	return p.profile, nil
}

type fakeSports struct {
	calls int
	err   error
}

func (f *fakeSports) Leagues(context.Context) (sportsdata.LeaguesResult, error) {
	f.calls++
	return sportsdata.LeaguesResult{Results: 1}, f.err
}

func (f *fakeSports) TeamsByLeague(_ context.Context, leagueID string) (sportsdata.TeamsResult, error) {
	f.calls++
	if leagueID == "abc" {
		return sportsdata.TeamsResult{}, sportsdata.ErrInvalidID
	}
	return sportsdata.TeamsResult{Results: 1, Teams: []sportsdata.Team{{TeamID: 33, Name: "Manchester United"}}}, f.err
}

func (f *fakeSports) PlayersByTeam(context.Context, string) (sportsdata.PlayersResult, error) {
	f.calls++
	return sportsdata.PlayersResult{}, f.err
}

func TestRateLimit_RejectsAfterLimitPerIP(t *testing.T) {
	policies := service.DefaultRateLimitPolicies()
	s := newTestServer(t, testServerOptions{policies: policies})
	body := gin.H{"Email": "nobody@x.com", "Password": "secret1"}

	for i := 0; i < 3; i++ {
		if rec, _ := s.do(t, http.MethodPost, "/api/users/login", body, nil); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rec.Code)
		}
	}

	rec, resp := s.do(t, http.MethodPost, "/api/users/login", body, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if resp.Success || resp.Message != policies[service.RateCategoryLogin].Message {
		t.Fatalf("unexpected rate limit body: %s", rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader(`{"Email":"nobody@x.com","Password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.7:4321"
	other := httptest.NewRecorder()
	s.router.ServeHTTP(other, req)
	if other.Code != http.StatusUnauthorized {
		t.Fatalf("expected other IP unaffected, got %d", other.Code)
	}

	metricsRec, _ := s.do(t, http.MethodGet, "/metrics", nil, nil)
	if !strings.Contains(metricsRec.Body.String(), `footballapp_rate_limited_total{category="login"} 1`) {
		t.Fatalf("expected rate limit metric recorded")
	}
}

func TestRateLimit_RegisterLeavesStoreUntouched(t *testing.T) {
	policies := service.DefaultRateLimitPolicies()
	p := policies[service.RateCategoryRegister]
	p.Limit = 1
	policies[service.RateCategoryRegister] = p
	s := newTestServer(t, testServerOptions{policies: policies})

	if rec, _ := s.do(t, http.MethodPost, "/api/users/register", gin.H{"Name": "A", "Email": "a@x.com", "Password": "secret1"}, nil); rec.Code != http.StatusCreated {
		t.Fatalf("expected first register 201, got %d", rec.Code)
	}
	rec, _ := s.do(t, http.MethodPost, "/api/users/register", gin.H{"Name": "B", "Email": "b@x.com", "Password": "secret1"}, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if _, err := s.repo.GetByEmail(context.Background(), "b@x.com"); err == nil {
		t.Fatalf("expected rejected registration not stored")
	}
}

func TestBearerAuth_RejectsMissingAndInvalidToken(t *testing.T) {
	s := newTestServer(t, testServerOptions{})

	rec, resp := s.do(t, http.MethodGet, "/api/users/dashboard", nil, nil)
	if rec.Code != http.StatusUnauthorized || resp.Message != "Unauthorized" {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec, _ = s.do(t, http.MethodGet, "/api/users/dashboard", nil, bearer("not-a-jwt"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}
	rec, _ = s.do(t, http.MethodGet, "/api/users/dashboard", nil, http.Header{"Authorization": []string{"Basic abc"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with basic auth, got %d", rec.Code)
	}
}

type stubAuthenticator struct {
	user domain.User
}

func (a stubAuthenticator) Authenticate(_ context.Context, token string) (domain.User, error) {
	if token != "good" {
		return domain.User{}, service.ErrUnauthorized
	}
	return a.user, nil
}

func TestBearerAuthMiddleware_StoresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", BearerAuthMiddleware(stubAuthenticator{user: domain.User{ID: "u1"}}, nil), func(c *gin.Context) {
		user, ok := GetAuthUser(c)
		if !ok || user.ID != "u1" {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer good")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestSportsRoutes(t *testing.T) {
	sports := &fakeSports{}
	s := newTestServer(t, testServerOptions{sports: sports})

	if rec, _ := s.do(t, http.MethodGet, "/api/onboarding/leagues", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected onboarding to require auth, got %d", rec.Code)
	}
	if sports.calls != 0 {
		t.Fatalf("expected source untouched without auth")
	}

	tokens := registerVerified(t, s, "gina@x.com", "secret1")
	rec, resp := s.do(t, http.MethodGet, "/api/onboarding/leagues", nil, bearer(tokens.AccessToken))
	if rec.Code != http.StatusOK || resp.Message != "All leagues around the world." {
		t.Fatalf("unexpected leagues response: %d %s", rec.Code, rec.Body.String())
	}
	rec, resp = s.do(t, http.MethodGet, "/api/onboarding/leagues/39/teams", nil, bearer(tokens.AccessToken))
	if rec.Code != http.StatusOK || !strings.Contains(string(resp.Data), "Manchester United") {
		t.Fatalf("unexpected teams response: %d %s", rec.Code, rec.Body.String())
	}
	if rec, _ := s.do(t, http.MethodGet, "/api/onboarding/leagues/abc/teams", nil, bearer(tokens.AccessToken)); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid id, got %d", rec.Code)
	}

	sports.err = sportsdata.ErrUpstream
	rec, resp = s.do(t, http.MethodGet, "/api/onboarding/teams/33/players", nil, bearer(tokens.AccessToken))
	if rec.Code != http.StatusBadGateway || resp.Message != "An error occurred while fetching players." {
		t.Fatalf("expected 502 on upstream failure, got %d %s", rec.Code, rec.Body.String())
	}

	sports.err = errors.New("boom")
	rec, resp = s.do(t, http.MethodGet, "/api/onboarding/leagues", nil, bearer(tokens.AccessToken))
	if rec.Code != http.StatusInternalServerError || strings.Contains(resp.Message, "boom") {
		t.Fatalf("expected hidden 500, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestGoogleOAuthFlow(t *testing.T) {
	provider := &fakeOAuthProvider{profile: oauth.Profile{
		Provider:       "google",
		ProviderUserID: "g-123",
		Email:          "hank@x.com",
		Name:           "Hank",
		AccessToken:    "provider-token",
	}}
	s := newTestServer(t, testServerOptions{oauth: provider})

	rec, _ := s.do(t, http.MethodGet, "/api/users/auth/google", nil, nil)
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", rec.Code)
	}
	var stateCookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == oauthStateCookie {
			stateCookie = ck
		}
	}
	if stateCookie == nil || stateCookie.Value == "" {
		t.Fatalf("expected state cookie")
	}
	if !strings.Contains(rec.Header().Get("Location"), url.QueryEscape(stateCookie.Value)) {
		t.Fatalf("expected state in redirect, got %s", rec.Header().Get("Location"))
	}

	callback := func(state, code string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/users/auth/google/callback?state="+url.QueryEscape(state)+"&code="+code, nil)
		req.AddCookie(stateCookie)
		out := httptest.NewRecorder()
		s.router.ServeHTTP(out, req)
		return out
	}

	if out := callback("forged", "good-code"); out.Code != http.StatusUnauthorized {
		t.Fatalf("expected state mismatch 401, got %d", out.Code)
	}
	if out := callback(stateCookie.Value, "bad-code"); out.Code != http.StatusUnauthorized {
		t.Fatalf("expected exchange failure 401, got %d", out.Code)
	}
	out := callback(stateCookie.Value, "good-code")
	if out.Code != http.StatusCreated || !strings.Contains(out.Body.String(), "accessToken") {
		t.Fatalf("expected tokens, got %d %s", out.Code, out.Body.String())
	}

	user, err := s.repo.GetByEmail(context.Background(), "hank@x.com")
	if err != nil || !user.EmailVerified || user.FederatedIdentity == nil {
		t.Fatalf("expected verified federated user, got %+v (%v)", user, err)
	}
}

func TestGoogleOAuth_NotConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewOAuthHandler(zap.NewNop(), nil, nil, nil, false)
	r := gin.New()
	r.GET("/auth/google", h.Begin)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHealthzAndNotFound(t *testing.T) {
	s := newTestServer(t, testServerOptions{})

	if rec, _ := s.do(t, http.MethodGet, "/healthz", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", rec.Code)
	}
	rec, resp := s.do(t, http.MethodGet, "/api/nothing-here", nil, nil)
	if rec.Code != http.StatusNotFound || resp.Success {
		t.Fatalf("expected enveloped 404, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRecoveryMiddleware_WritesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(recoveryMiddleware(zap.NewNop()))
	r.GET("/panic", func(*gin.Context) { panic("kaboom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), `"success":false`) {
		t.Fatalf("expected enveloped 500, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestWriteInternal_ExposesDetailsWhenEnabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, expose := range []bool{false, true} {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
		writeInternal(c, zap.NewNop(), expose, "failed", "Server error", errors.New("db down"))

		leaked := strings.Contains(rec.Body.String(), "db down")
		if leaked != expose {
			t.Fatalf("expose=%v: unexpected body %s", expose, rec.Body.String())
		}
	}
}
