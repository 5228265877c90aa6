package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"footballapp/internal/domain"
	"footballapp/internal/repository"
)

// Strategy verifica un tipo de credencial y devuelve el usuario autenticado.
type Strategy[C any] interface {
	Verify(ctx context.Context, creds C) (domain.User, error)
}

var (
	_ Strategy[LocalCredentials] = (*LocalStrategy)(nil)
	_ Strategy[FederatedProfile] = (*FederatedStrategy)(nil)
	_ Strategy[string]           = (*BearerStrategy)(nil)
)

type LocalCredentials struct {
	Email    string
	Password string
}

// LocalStrategy autentica por email y contraseña.
type LocalStrategy struct {
	users  repository.UserRepository
	hasher *PasswordHasher
}

func NewLocalStrategy(users repository.UserRepository, hasher *PasswordHasher) *LocalStrategy {
	return &LocalStrategy{users: users, hasher: hasher}
}

func (s *LocalStrategy) Verify(ctx context.Context, creds LocalCredentials) (domain.User, error) {
	user, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(creds.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.CompareDummy(creds.Password)
			return domain.User{}, ErrNoSuchUser
		}
		return domain.User{}, err
	}
	if !s.hasher.Verify(creds.Password, user.PasswordHash) {
		return domain.User{}, ErrBadCredentials
	}
	return user, nil
}

// FederatedProfile es lo que el proveedor externo informa del usuario.
type FederatedProfile struct {
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
	PictureURL     string
	AccessToken    string
}

// FederatedStrategy resuelve o crea el usuario asociado a una identidad externa.
type FederatedStrategy struct {
	users  repository.UserRepository
	hasher *PasswordHasher
	now    func() time.Time
}

func NewFederatedStrategy(users repository.UserRepository, hasher *PasswordHasher) *FederatedStrategy {
	return &FederatedStrategy{
		users:  users,
		hasher: hasher,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *FederatedStrategy) Verify(ctx context.Context, profile FederatedProfile) (domain.User, error) {
	provider := strings.ToLower(strings.TrimSpace(profile.Provider))
	subject := strings.TrimSpace(profile.ProviderUserID)
	email := domain.NormalizeEmail(profile.Email)
	if provider == "" || subject == "" || email == "" {
		return domain.User{}, ErrFederatedProfileInvalid
	}
	identity := domain.FederatedIdentity{Provider: provider, ProviderUserID: subject, ProviderToken: profile.AccessToken}
	now := s.now()

	user, err := s.users.GetByFederatedIdentity(ctx, provider, subject)
	if err == nil {
		return s.link(ctx, user, identity, now)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return s.link(ctx, existing, identity, now)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, err
	}

	hash, err := s.hasher.UnusableHash()
	if err != nil {
		return domain.User{}, err
	}
	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = email
	}
	user = domain.NewUser(name, email, hash, now)
	user.EmailVerified = true
	user.FederatedIdentity = &identity
	user.ProfilePictureURL = strings.TrimSpace(profile.PictureURL)
	user.LastLoginAt = &now

	if err := s.users.Create(ctx, user); err != nil {
		// Otra petición creó la cuenta entre la búsqueda y el insert.
		if errors.Is(err, repository.ErrDuplicate) {
			return s.users.GetByFederatedIdentity(ctx, provider, subject)
		}
		if errors.Is(err, repository.ErrDuplicateEmail) {
			existing, getErr := s.users.GetByEmail(ctx, email)
			if getErr != nil {
				return domain.User{}, getErr
			}
			return s.link(ctx, existing, identity, now)
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *FederatedStrategy) link(ctx context.Context, user domain.User, identity domain.FederatedIdentity, now time.Time) (domain.User, error) {
	if err := s.users.LinkFederatedIdentity(ctx, user.ID, identity, now); err != nil {
		return domain.User{}, err
	}
	user.FederatedIdentity = &identity
	user.EmailVerified = true
	user.VerificationCode = nil
	user.LastLoginAt = &now
	user.UpdatedAt = now
	return user, nil
}

// BearerStrategy valida un access token y carga al usuario que representa.
type BearerStrategy struct {
	users  repository.UserRepository
	tokens *JWTService
}

func NewBearerStrategy(users repository.UserRepository, tokens *JWTService) *BearerStrategy {
	return &BearerStrategy{users: users, tokens: tokens}
}

func (s *BearerStrategy) Verify(ctx context.Context, accessToken string) (domain.User, error) {
	claims, err := s.tokens.ParseAccessToken(accessToken)
	if err != nil {
		return domain.User{}, ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUnauthorized
		}
		return domain.User{}, err
	}
	return user, nil
}
