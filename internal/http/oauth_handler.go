package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"footballapp/internal/metrics"
	"footballapp/internal/oauth"
	"footballapp/internal/service"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 600
)

// OAuthHandler maneja el flujo authorization-code contra un proveedor externo.
type OAuthHandler struct {
	logger       *zap.Logger
	provider     oauth.Provider
	userServ     *service.UserService
	metrics      *metrics.Metrics
	exposeErrors bool
}

// NewOAuthHandler crea el handler; provider nil deja las rutas respondiendo 503.
func NewOAuthHandler(logger *zap.Logger, provider oauth.Provider, userServ *service.UserService, m *metrics.Metrics, exposeErrors bool) *OAuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OAuthHandler{
		logger:       logger,
		provider:     provider,
		userServ:     userServ,
		metrics:      m,
		exposeErrors: exposeErrors,
	}
}

// Begin maneja GET /api/users/auth/google.
func (h *OAuthHandler) Begin(c *gin.Context) {
	if h.provider == nil {
		writeError(c, http.StatusServiceUnavailable, "Google login is not configured")
		return
	}
	state, err := oauth.NewState()
	if err != nil {
		writeInternal(c, h.logger, h.exposeErrors, "oauth state failed", "Error occurred while starting Google login", err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, oauthStateMaxAge, "/", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusTemporaryRedirect, h.provider.AuthURL(state))
}

// Callback maneja GET /api/users/auth/google/callback.
func (h *OAuthHandler) Callback(c *gin.Context) {
	if h.provider == nil {
		writeError(c, http.StatusServiceUnavailable, "Google login is not configured")
		return
	}

	expected, err := c.Cookie(oauthStateCookie)
	c.SetCookie(oauthStateCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	if err != nil || expected == "" || c.Query("state") != expected {
		h.metrics.AuthFailure("oauth_state")
		writeError(c, http.StatusUnauthorized, "Invalid OAuth state")
		return
	}
	code := c.Query("code")
	if code == "" {
		writeError(c, http.StatusBadRequest, "Missing authorization code")
		return
	}

	profile, err := h.provider.ResolveProfile(c.Request.Context(), code)
	if err != nil {
		h.metrics.AuthFailure("oauth_profile")
		h.logger.Warn("oauth profile failed", zap.String("provider", h.provider.ProviderID()), zap.Error(err))
		if errors.Is(err, oauth.ErrEmailUnverified) {
			writeError(c, http.StatusUnauthorized, "Google account email is not verified")
			return
		}
		writeError(c, http.StatusUnauthorized, "Google authentication failed")
		return
	}

	_, tokens, err := h.userServ.LoginFederated(c.Request.Context(), service.FederatedProfile{
		Provider:       profile.Provider,
		ProviderUserID: profile.ProviderUserID,
		Email:          profile.Email,
		Name:           profile.Name,
		PictureURL:     profile.PictureURL,
		AccessToken:    profile.AccessToken,
	})
	if err != nil {
		if errors.Is(err, service.ErrFederatedProfileInvalid) {
			writeError(c, http.StatusUnauthorized, "Google authentication failed")
			return
		}
		writeInternal(c, h.logger, h.exposeErrors, "federated login failed", "Error occurred while logging in user", err)
		return
	}

	writeSuccess(c, http.StatusCreated, "User logged in successfully", tokens)
}
