package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"footballapp/internal/domain"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already in use")
	ErrDuplicate      = errors.New("duplicate record")

	// ErrResetCodeActive indica que el usuario ya tiene un código de reseteo sin vencer.
	ErrResetCodeActive = errors.New("password reset code still active")
)

// ProfileUpdate lleva los campos editables por el propio usuario.
// PasswordHash vacío deja la contraseña como está.
type ProfileUpdate struct {
	Name              string
	Email             string
	PasswordHash      string
	ProfilePictureURL string
}

// UserRepository define el contrato de persistencia para usuarios.
// Todas las escrituras afectan a un solo documento/fila.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByFederatedIdentity(ctx context.Context, provider, providerUserID string) (domain.User, error)
	GetByVerificationCode(ctx context.Context, code string) (domain.User, error)
	GetByResetCode(ctx context.Context, code string) (domain.User, error)
	MarkEmailVerified(ctx context.Context, id string, at time.Time) error
	// SetPasswordResetCode sólo escribe si no hay código vigente en at; si lo hay devuelve ErrResetCodeActive.
	SetPasswordResetCode(ctx context.Context, id, code string, expiresAt, at time.Time) error
	// ClearPasswordResetCode borra el código si sigue siendo code; si no, ErrNotFound.
	ClearPasswordResetCode(ctx context.Context, id, code string, at time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error
	LinkFederatedIdentity(ctx context.Context, id string, identity domain.FederatedIdentity, at time.Time) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate, at time.Time) (domain.User, error)
	Ping(ctx context.Context) error
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	db dbtx
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{db: pool}
}

const userColumns = `
	id, name, email, password_hash, phone, role, email_verified,
	verification_code, password_reset_code, password_reset_expires_at,
	federated_provider, federated_subject, federated_token,
	profile_picture_url, created_at, updated_at, last_login_at
`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	var provider, subject, token *string
	if fi := user.FederatedIdentity; fi != nil {
		provider, subject, token = &fi.Provider, &fi.ProviderUserID, &fi.ProviderToken
	}
	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		nullString(user.Phone),
		string(user.Role),
		user.EmailVerified,
		user.VerificationCode,
		user.PasswordResetCode,
		user.PasswordResetExpiresAt,
		provider,
		subject,
		token,
		nullString(user.ProfilePictureURL),
		user.CreatedAt,
		user.UpdatedAt,
		user.LastLoginAt,
	)
	return mapPgError(err)
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PgUserRepository) GetByFederatedIdentity(ctx context.Context, provider, providerUserID string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE federated_provider = $1 AND federated_subject = $2`, provider, providerUserID)
}

func (r *PgUserRepository) GetByVerificationCode(ctx context.Context, code string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE verification_code = $1 LIMIT 1`, code)
}

func (r *PgUserRepository) GetByResetCode(ctx context.Context, code string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE password_reset_code = $1 LIMIT 1`, code)
}

func (r *PgUserRepository) MarkEmailVerified(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE users
		SET email_verified = TRUE, verification_code = NULL, updated_at = $2
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, at)
}

func (r *PgUserRepository) SetPasswordResetCode(ctx context.Context, id, code string, expiresAt, at time.Time) error {
	const query = `
		UPDATE users
		SET password_reset_code = $2, password_reset_expires_at = $3, updated_at = $4
		WHERE id = $1
		  AND (password_reset_expires_at IS NULL OR password_reset_expires_at <= $4)
	`
	err := r.execOne(ctx, query, id, code, expiresAt, at)
	if errors.Is(err, ErrNotFound) {
		return ErrResetCodeActive
	}
	return err
}

func (r *PgUserRepository) ClearPasswordResetCode(ctx context.Context, id, code string, at time.Time) error {
	const query = `
		UPDATE users
		SET password_reset_code = NULL, password_reset_expires_at = NULL, updated_at = $3
		WHERE id = $1 AND password_reset_code = $2
	`
	return r.execOne(ctx, query, id, code, at)
}

func (r *PgUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	const query = `
		UPDATE users
		SET password_hash = $2, password_reset_code = NULL, password_reset_expires_at = NULL, updated_at = $3
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, passwordHash, at)
}

func (r *PgUserRepository) LinkFederatedIdentity(ctx context.Context, id string, identity domain.FederatedIdentity, at time.Time) error {
	const query = `
		UPDATE users
		SET federated_provider = $2, federated_subject = $3, federated_token = $4,
		    email_verified = TRUE, verification_code = NULL, last_login_at = $5, updated_at = $5
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, identity.Provider, identity.ProviderUserID, identity.ProviderToken, at)
}

func (r *PgUserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE users SET last_login_at = $2 WHERE id = $1`
	return r.execOne(ctx, query, id, at)
}

func (r *PgUserRepository) UpdateProfile(ctx context.Context, id string, update ProfileUpdate, at time.Time) (domain.User, error) {
	const query = `
		UPDATE users
		SET name = $2,
		    email = $3,
		    password_hash = COALESCE(NULLIF($4, ''), password_hash),
		    profile_picture_url = $5,
		    updated_at = $6
		WHERE id = $1
		RETURNING ` + userColumns
	return r.getOne(ctx, query, id, update.Name, update.Email, update.PasswordHash, nullString(update.ProfilePictureURL), at)
}

func (r *PgUserRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *PgUserRepository) getOne(ctx context.Context, query string, args ...any) (domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return domain.User{}, mapPgError(err)
	}
	return u, nil
}

func (r *PgUserRepository) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u                        domain.User
		role                     string
		phone, picture           *string
		provider, subject, token *string
	)
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&phone,
		&role,
		&u.EmailVerified,
		&u.VerificationCode,
		&u.PasswordResetCode,
		&u.PasswordResetExpiresAt,
		&provider,
		&subject,
		&token,
		&picture,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.LastLoginAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	if phone != nil {
		u.Phone = *phone
	}
	if picture != nil {
		u.ProfilePictureURL = *picture
	}
	if provider != nil && subject != nil {
		u.FederatedIdentity = &domain.FederatedIdentity{Provider: *provider, ProviderUserID: *subject}
		if token != nil {
			u.FederatedIdentity.ProviderToken = *token
		}
	}
	return u, nil
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if strings.Contains(pgErr.ConstraintName, "email") {
			return ErrDuplicateEmail
		}
		return ErrDuplicate
	}
	return err
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
