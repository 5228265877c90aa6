package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// envelope es la forma común de todas las respuestas JSON.
type envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    any          `json:"data,omitempty"`
	Errors  []fieldError `json:"errors,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

const validationFailedMessage = "Validation errors"

// Mensajes por campo del cuerpo; el resto cae en validationMessage.
var fieldMessages = map[string]string{
	"Name":             "Name is required",
	"Email":            "Invalid email",
	"Password":         "Password must be at least 6 characters long",
	"ConfirmPassword":  "Passwords do not match",
	"VerificationCode": "Invalid token",
	"ProfilePicture":   "Invalid profile picture URL",
	"RefreshToken":     "Refresh token is required",
}

func writeSuccess(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func writeError(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Success: false, Message: message})
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: message})
}

// writeInternal registra el error y sólo expone el detalle si está habilitado.
func writeInternal(c *gin.Context, logger *zap.Logger, expose bool, logMsg, publicMsg string, err error) {
	logger.Error(logMsg, zap.Error(err), zap.String("path", c.Request.URL.Path))
	if expose {
		writeError(c, http.StatusInternalServerError, fmt.Sprintf("%s: %v", publicMsg, err))
		return
	}
	writeError(c, http.StatusInternalServerError, publicMsg)
}

// writeBindError responde 400 con la lista de campos cuando el error viene del validador.
func writeBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	out := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldError{Field: fe.Field(), Message: validationMessage(fe)})
	}
	c.JSON(http.StatusBadRequest, envelope{Success: false, Message: validationFailedMessage, Errors: out})
}

func validationMessage(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "email":
		return "Invalid email"
	case "url":
		return "Invalid URL"
	}
	return fe.Field() + " is invalid"
}
