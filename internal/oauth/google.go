package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleProvider implementa Provider contra Google OAuth 2.0 / OpenID Connect.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *GoogleProvider) ProviderID() string {
	return "google"
}

func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (p *GoogleProvider) ResolveProfile(ctx context.Context, code string) (Profile, error) {
	if strings.TrimSpace(code) == "" {
		return Profile{}, ErrExchangeFailed
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return Profile{}, err
	}
	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrProfileFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Profile{}, fmt.Errorf("%w: status %d: %s", ErrProfileFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Profile{}, fmt.Errorf("%w: decode: %v", ErrProfileFailed, err)
	}
	if info.Sub == "" || info.Email == "" {
		return Profile{}, fmt.Errorf("%w: missing subject or email", ErrProfileFailed)
	}
	if !info.EmailVerified {
		return Profile{}, ErrEmailUnverified
	}

	return Profile{
		Provider:       p.ProviderID(),
		ProviderUserID: info.Sub,
		Email:          info.Email,
		Name:           info.Name,
		PictureURL:     info.Picture,
		AccessToken:    token.AccessToken,
	}, nil
}
