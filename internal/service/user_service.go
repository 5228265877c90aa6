package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"footballapp/internal/domain"
	"footballapp/internal/email"
	"footballapp/internal/repository"
)

var (
	ErrUserNotFound            = errors.New("user not found")
	ErrEmailTaken              = errors.New("email already in use")
	ErrNoSuchUser              = errors.New("no user with this email")
	ErrBadCredentials          = errors.New("bad credentials")
	ErrEmailNotVerified        = errors.New("email not verified")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrInvalidVerificationCode = errors.New("invalid verification code")
	ErrInvalidResetCode        = errors.New("invalid reset code")
	ErrResetCodeExpired        = errors.New("reset code expired")
	ErrResetCodeOutstanding    = errors.New("reset code already outstanding")
	ErrPasswordMismatch        = errors.New("passwords do not match")
	ErrPasswordReused          = errors.New("new password equals current password")
	ErrFederatedProfileInvalid = errors.New("federated profile invalid")
	errCodeSpaceExhausted      = errors.New("could not allocate a unique code")
)

const (
	resetCodeTTL      = time.Hour
	maxCodeAttempts   = 10
	verifyMailSubject = "Verify your email address"
	resetMailSubject  = "Password Reset"
)

// MailQueue recibe correos para envío asíncrono.
type MailQueue interface {
	Enqueue(msg email.Message) bool
}

// UserService coordina reglas de negocio para usuarios.
type UserService struct {
	logger    *zap.Logger
	users     repository.UserRepository
	hasher    *PasswordHasher
	tokens    *JWTService
	mail      MailQueue
	local     *LocalStrategy
	federated *FederatedStrategy
	bearer    *BearerStrategy
	now       func() time.Time
	newCode   func() (string, error)
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, hasher *PasswordHasher, tokens *JWTService, mail MailQueue) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hasher == nil {
		hasher = NewPasswordHasher()
	}
	return &UserService{
		logger:    logger,
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		mail:      mail,
		local:     NewLocalStrategy(users, hasher),
		federated: NewFederatedStrategy(users, hasher),
		bearer:    NewBearerStrategy(users, tokens),
		now:       func() time.Time { return time.Now().UTC() },
		newCode:   generateCode,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register crea la cuenta sin verificar y envía el código de verificación.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	emailAddr := domain.NormalizeEmail(input.Email)
	if _, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return domain.User{}, err
	}
	code, err := s.uniqueCode(ctx, s.users.GetByVerificationCode)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.NewUser(input.Name, emailAddr, hash, s.now())
	user.VerificationCode = &code
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	s.sendMail(user.Email, verifyMailSubject, fmt.Sprintf(
		"Thank you for signing up for our service!\n\n"+
			"Please use the following verification code to verify your account:\n\n"+
			"%s\n\n"+
			"If you did not request this, please ignore this email.\n",
		code,
	))
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// VerifyEmail marca como verificada la cuenta dueña del código.
func (s *UserService) VerifyEmail(ctx context.Context, code string) (domain.User, error) {
	code = strings.TrimSpace(code)
	if !isValidCode(code) {
		return domain.User{}, ErrInvalidVerificationCode
	}
	user, err := s.users.GetByVerificationCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrInvalidVerificationCode
		}
		return domain.User{}, err
	}
	now := s.now()
	if err := s.users.MarkEmailVerified(ctx, user.ID, now); err != nil {
		return domain.User{}, err
	}
	user.EmailVerified = true
	user.VerificationCode = nil
	user.UpdatedAt = now
	return user, nil
}

// Login valida credenciales locales y emite el par de tokens.
func (s *UserService) Login(ctx context.Context, emailAddr, password string) (domain.User, TokenPair, error) {
	user, err := s.local.Verify(ctx, LocalCredentials{Email: emailAddr, Password: password})
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}
	if !user.EmailVerified {
		return domain.User{}, TokenPair{}, ErrEmailNotVerified
	}
	return s.issue(ctx, user)
}

// LoginFederated resuelve la identidad externa y emite el par de tokens.
func (s *UserService) LoginFederated(ctx context.Context, profile FederatedProfile) (domain.User, TokenPair, error) {
	user, err := s.federated.Verify(ctx, profile)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}
	pair, err := s.tokens.GeneratePair(user)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

// Authenticate resuelve el usuario de un access token.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (domain.User, error) {
	return s.bearer.Verify(ctx, accessToken)
}

// Refresh rota el refresh token y emite un par nuevo.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.ConsumeRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrUnauthorized
		}
		return TokenPair{}, err
	}
	return s.tokens.GeneratePair(user)
}

// Logout revoca el refresh token; los access tokens vencen solos.
func (s *UserService) Logout(refreshToken string) error {
	if err := s.tokens.RevokeRefresh(refreshToken); err != nil {
		if errors.Is(err, ErrJWTInvalid) || errors.Is(err, ErrJWTExpired) {
			return ErrUnauthorized
		}
		return err
	}
	return nil
}

// ForgotPassword emite un código de reseteo válido por una hora.
func (s *UserService) ForgotPassword(ctx context.Context, emailAddr string) error {
	user, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	now := s.now()
	if user.ResetCodeOutstanding(now) {
		return ErrResetCodeOutstanding
	}

	code, err := s.uniqueCode(ctx, s.reclaimingResetLookup(now))
	if err != nil {
		return err
	}
	// La escritura es condicional: de dos peticiones simultáneas sólo una deja código.
	if err := s.users.SetPasswordResetCode(ctx, user.ID, code, now.Add(resetCodeTTL), now); err != nil {
		if errors.Is(err, repository.ErrResetCodeActive) {
			return ErrResetCodeOutstanding
		}
		return err
	}

	s.sendMail(user.Email, resetMailSubject, fmt.Sprintf(
		"You are receiving this because you (or someone else) have requested the reset of the password for your account.\n\n"+
			"Please use the following verification code to reset your password:\n\n"+
			"%s\n\n"+
			"If you did not request this, please ignore this email and your password will remain unchanged.\n",
		code,
	))
	return nil
}

// VerifyResetCode sólo comprueba el código; no modifica estado.
func (s *UserService) VerifyResetCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if !isValidCode(code) {
		return ErrInvalidResetCode
	}
	user, err := s.users.GetByResetCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetCode
		}
		return err
	}
	if user.ResetCodeExpired(s.now()) {
		return ErrResetCodeExpired
	}
	return nil
}

type ResetPasswordInput struct {
	Email           string
	Code            string
	Password        string
	ConfirmPassword string
}

// ResetPassword reemplaza la contraseña si el código coincide y sigue vigente.
func (s *UserService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	if input.Password != input.ConfirmPassword {
		return ErrPasswordMismatch
	}
	code := strings.TrimSpace(input.Code)
	if !isValidCode(code) {
		return ErrInvalidResetCode
	}

	user, err := s.resetTarget(ctx, domain.NormalizeEmail(input.Email), code)
	if err != nil {
		return err
	}
	if user.ResetCodeExpired(s.now()) {
		return ErrResetCodeExpired
	}
	if s.hasher.Verify(input.Password, user.PasswordHash) {
		return ErrPasswordReused
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.logger.Info("password reset", zap.String("user_id", user.ID))
	return nil
}

func (s *UserService) resetTarget(ctx context.Context, emailAddr, code string) (domain.User, error) {
	if emailAddr == "" {
		user, err := s.users.GetByResetCode(ctx, code)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.User{}, ErrInvalidResetCode
			}
			return domain.User{}, err
		}
		return user, nil
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	if user.PasswordResetCode == nil || *user.PasswordResetCode != code {
		return domain.User{}, ErrInvalidResetCode
	}
	return user, nil
}

// GetProfile devuelve el registro del propio usuario.
func (s *UserService) GetProfile(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

type UpdateProfileInput struct {
	Name              string
	Email             string
	Password          string
	ProfilePictureURL string
}

// UpdateProfile persiste los campos editables; Password vacío conserva la actual.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (domain.User, error) {
	emailAddr := domain.NormalizeEmail(input.Email)
	other, err := s.users.GetByEmail(ctx, emailAddr)
	if err == nil && other.ID != userID {
		return domain.User{}, ErrEmailTaken
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, err
	}

	update := repository.ProfileUpdate{
		Name:              strings.TrimSpace(input.Name),
		Email:             emailAddr,
		ProfilePictureURL: strings.TrimSpace(input.ProfilePictureURL),
	}
	if input.Password != "" {
		hash, err := s.hasher.Hash(input.Password)
		if err != nil {
			return domain.User{}, err
		}
		update.PasswordHash = hash
	}

	user, err := s.users.UpdateProfile(ctx, userID, update, s.now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return domain.User{}, ErrUserNotFound
		case errors.Is(err, repository.ErrDuplicateEmail):
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) issue(ctx context.Context, user domain.User) (domain.User, TokenPair, error) {
	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("touch last login failed", zap.Error(err), zap.String("user_id", user.ID))
	} else {
		user.LastLoginAt = &now
	}
	pair, err := s.tokens.GeneratePair(user)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

// uniqueCode sortea códigos hasta encontrar uno que ningún otro usuario tenga.
func (s *UserService) uniqueCode(ctx context.Context, lookup func(context.Context, string) (domain.User, error)) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return "", err
		}
		_, err = lookup(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errCodeSpaceExhausted
}

// reclaimingResetLookup trata como libre un código de reseteo vencido y lo borra de su titular.
func (s *UserService) reclaimingResetLookup(now time.Time) func(context.Context, string) (domain.User, error) {
	return func(ctx context.Context, code string) (domain.User, error) {
		holder, err := s.users.GetByResetCode(ctx, code)
		if err != nil || !holder.ResetCodeExpired(now) {
			return holder, err
		}
		switch err := s.users.ClearPasswordResetCode(ctx, holder.ID, code, now); {
		case err == nil:
			s.logger.Debug("expired reset code reclaimed", zap.String("user_id", holder.ID))
			return domain.User{}, repository.ErrNotFound
		case errors.Is(err, repository.ErrNotFound):
			// El titular cambió de código entre lectura y borrado; se prueba otro.
			return holder, nil
		default:
			return domain.User{}, err
		}
	}
}

func (s *UserService) sendMail(to, subject, body string) {
	if s.mail == nil {
		s.logger.Warn("mail queue not configured", zap.String("to", to), zap.String("subject", subject))
		return
	}
	if !s.mail.Enqueue(email.Message{To: to, Subject: subject, Body: body}) {
		s.logger.Warn("mail not queued", zap.String("to", to), zap.String("subject", subject))
	}
}
