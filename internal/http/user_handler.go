package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"footballapp/internal/domain"
	"footballapp/internal/metrics"
	"footballapp/internal/service"
)

// UserHandler mantiene dependencias para endpoints de usuarios.
type UserHandler struct {
	logger       *zap.Logger
	userServ     *service.UserService
	metrics      *metrics.Metrics
	exposeErrors bool
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService, m *metrics.Metrics, exposeErrors bool) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{
		logger:       logger,
		userServ:     userServ,
		metrics:      m,
		exposeErrors: exposeErrors,
	}
}

// Register maneja POST /api/users/register.
func (h *UserHandler) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"Name" binding:"required"`
		Email    string `json:"Email" binding:"required,email"`
		Password string `json:"Password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		writeBindError(c, err)
		return
	}

	_, err := h.userServ.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			writeError(c, http.StatusBadRequest, "Email already in use")
			return
		}
		writeInternal(c, h.logger, h.exposeErrors, "register failed", "Error occurred while registering new user", err)
		return
	}

	writeSuccess(c, http.StatusCreated, "An email has been sent to your email address with further instructions.", []any{})
}

// VerifyEmail maneja POST /api/users/verify-email.
func (h *UserHandler) VerifyEmail(c *gin.Context) {
	var req struct {
		VerificationCode string `json:"VerificationCode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	if _, err := h.userServ.VerifyEmail(c.Request.Context(), req.VerificationCode); err != nil {
		if errors.Is(err, service.ErrInvalidVerificationCode) {
			writeError(c, http.StatusBadRequest, "The verification token is invalid. Please request a new verification token.")
			return
		}
		writeInternal(c, h.logger, h.exposeErrors, "verify email failed", "Error occurred while verifying email", err)
		return
	}

	writeSuccess(c, http.StatusCreated, "Email verified successfully", []any{})
}

// Login maneja POST /api/users/login.
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"Email" binding:"required,email"`
		Password string `json:"Password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	_, tokens, err := h.userServ.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoSuchUser):
			h.metrics.AuthFailure("no_such_user")
			writeError(c, http.StatusUnauthorized, "No user found with this email.")
		case errors.Is(err, service.ErrBadCredentials):
			h.metrics.AuthFailure("bad_credentials")
			writeError(c, http.StatusUnauthorized, "Password incorrect.")
		case errors.Is(err, service.ErrEmailNotVerified):
			h.metrics.AuthFailure("email_not_verified")
			writeError(c, http.StatusUnauthorized, "Please verify your email before logging in.")
		default:
			writeInternal(c, h.logger, h.exposeErrors, "login failed", "Error occurred while logging in user", err)
		}
		return
	}

	writeSuccess(c, http.StatusCreated, "User logged in successfully", tokens)
}

// Refresh maneja POST /api/users/refresh.
func (h *UserHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"RefreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	tokens, err := h.userServ.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			h.metrics.AuthFailure("invalid_refresh")
			writeError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		writeInternal(c, h.logger, h.exposeErrors, "refresh failed", "Error occurred while refreshing tokens", err)
		return
	}

	writeSuccess(c, http.StatusCreated, "Tokens refreshed successfully", tokens)
}

// Logout maneja POST /api/users/logout.
func (h *UserHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"RefreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	if err := h.userServ.Logout(req.RefreshToken); err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			writeError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		writeInternal(c, h.logger, h.exposeErrors, "logout failed", "Error occurred while logging out", err)
		return
	}

	writeSuccess(c, http.StatusCreated, "User logged out successfully", []any{})
}

// ForgotPassword maneja POST /api/users/forgot-password.
func (h *UserHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"Email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	if err := h.userServ.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			writeError(c, http.StatusNotFound, "No account with this email address exists.")
		case errors.Is(err, service.ErrResetCodeOutstanding):
			writeError(c, http.StatusBadRequest, "A password reset token has already been sent. Please check your email or wait until the token expires.")
		default:
			writeInternal(c, h.logger, h.exposeErrors, "forgot password failed", "Error occurred while sending forgot password email", err)
		}
		return
	}

	writeSuccess(c, http.StatusCreated, "An email has been sent to your email address with further instructions.", []any{})
}

// VerifyResetCode maneja POST /api/users/verify-reset-password.
func (h *UserHandler) VerifyResetCode(c *gin.Context) {
	var req struct {
		VerificationCode string `json:"VerificationCode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	if err := h.userServ.VerifyResetCode(c.Request.Context(), req.VerificationCode); err != nil {
		if !h.writeResetCodeError(c, err) {
			writeInternal(c, h.logger, h.exposeErrors, "verify reset code failed", "Error occurred while verifying verification code", err)
		}
		return
	}

	writeSuccess(c, http.StatusCreated, "Verification code is valid", []any{})
}

// ResetPassword maneja POST /api/users/reset-password.
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Email            string `json:"Email" binding:"omitempty,email"`
		VerificationCode string `json:"VerificationCode" binding:"required"`
		Password         string `json:"Password" binding:"required,min=6"`
		ConfirmPassword  string `json:"ConfirmPassword" binding:"required,eqfield=Password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	err := h.userServ.ResetPassword(c.Request.Context(), service.ResetPasswordInput{
		Email:           req.Email,
		Code:            req.VerificationCode,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		if h.writeResetCodeError(c, err) {
			return
		}
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			writeError(c, http.StatusNotFound, "No account with this email address exists.")
		case errors.Is(err, service.ErrPasswordReused):
			writeError(c, http.StatusBadRequest, "New password cannot be the same as the current password.")
		case errors.Is(err, service.ErrPasswordMismatch):
			writeError(c, http.StatusBadRequest, "Passwords do not match")
		default:
			writeInternal(c, h.logger, h.exposeErrors, "reset password failed", "Error occurred while resetting password", err)
		}
		return
	}

	writeSuccess(c, http.StatusCreated, "Password reset successfully", []any{})
}

func (h *UserHandler) writeResetCodeError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrInvalidResetCode):
		writeError(c, http.StatusBadRequest, "The verification code is invalid. Please request a new verification code.")
	case errors.Is(err, service.ErrResetCodeExpired):
		writeError(c, http.StatusBadRequest, "The verification code has expired. Please request a new verification code.")
	default:
		return false
	}
	return true
}

// Profile maneja GET /api/users/profile y /api/users/dashboard.
func (h *UserHandler) Profile(c *gin.Context) {
	authUser, ok := GetAuthUser(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.userServ.GetProfile(c.Request.Context(), authUser.ID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(c, http.StatusNotFound, "User not found")
			return
		}
		writeInternal(c, h.logger, h.exposeErrors, "get profile failed", "Error occurred while fetching user data", err)
		return
	}

	writeSuccess(c, http.StatusCreated, "User profile", []domain.User{user})
}

// UpdateProfile maneja POST /api/users/updateProfile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	authUser, ok := GetAuthUser(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Name           string `json:"Name" binding:"required"`
		Email          string `json:"Email" binding:"required,email"`
		Password       string `json:"Password" binding:"omitempty,min=6"`
		ProfilePicture string `json:"ProfilePicture" binding:"omitempty,url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	user, err := h.userServ.UpdateProfile(c.Request.Context(), authUser.ID, service.UpdateProfileInput{
		Name:              req.Name,
		Email:             req.Email,
		Password:          req.Password,
		ProfilePictureURL: req.ProfilePicture,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			writeError(c, http.StatusNotFound, "User not found")
		case errors.Is(err, service.ErrEmailTaken):
			writeError(c, http.StatusBadRequest, "Email already in use")
		default:
			writeInternal(c, h.logger, h.exposeErrors, "update profile failed", "Error occurred while updating user profile", err)
		}
		return
	}

	writeSuccess(c, http.StatusCreated, "User profile updated successfully", []domain.User{user})
}
