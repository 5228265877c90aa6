package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
)

var (
	ErrExchangeFailed  = errors.New("oauth code exchange failed")
	ErrProfileFailed   = errors.New("oauth profile fetch failed")
	ErrEmailUnverified = errors.New("provider email not verified")
)

// Profile es la identidad que devuelve el proveedor tras el intercambio del código.
type Profile struct {
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
	PictureURL     string
	AccessToken    string
}

// Provider abstrae un flujo authorization-code de un proveedor externo.
type Provider interface {
	ProviderID() string
	AuthURL(state string) string
	ResolveProfile(ctx context.Context, code string) (Profile, error)
}

// NewState genera un valor opaco para el parámetro state.
func NewState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
