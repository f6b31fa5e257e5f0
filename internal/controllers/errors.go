package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safetyfirst/backend/internal/auth"
	"github.com/safetyfirst/backend/internal/logger"
	"github.com/safetyfirst/backend/internal/models"
	"github.com/safetyfirst/backend/internal/services"
	"github.com/safetyfirst/backend/internal/storage"
)

// apiError is the body of every failed response. Message is the Hebrew text
// shown to the user.
type apiError struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorKind struct {
	err     error
	status  int
	code    string
	message string
}

// errorKinds is matched in order, so specific errors precede the kinds they
// wrap.
var errorKinds = []errorKind{
	{services.ErrInvalidAssignee, http.StatusBadRequest, "invalid_assignee", "ניתן לשייך רק למנהל קיים"},
	{auth.ErrPasswordTooShort, http.StatusBadRequest, "password_too_short", "הסיסמה חייבת להכיל לפחות 8 תווים"},
	{auth.ErrPasswordSpaces, http.StatusBadRequest, "password_spaces", "הסיסמה לא יכולה להכיל רווחים"},
	{auth.ErrPasswordCharset, http.StatusBadRequest, "password_charset", "הסיסמה חייבת להכיל רק אותיות באנגלית ומספרים"},
	{storage.ErrPhotoTooLarge, http.StatusBadRequest, "photo_too_large", "קובץ גדול מדי (מקסימום 10MB)"},
	{storage.ErrPhotoType, http.StatusBadRequest, "photo_type", "סוג קובץ לא נתמך"},
	{storage.ErrPhotoEmpty, http.StatusBadRequest, "photo_empty", "העלאת התמונה נכשלה"},

	{models.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated", "נדרשת התחברות"},
	{models.ErrNotFound, http.StatusNotFound, "not_found", "הפריט לא נמצא"},
	{models.ErrForbidden, http.StatusForbidden, "forbidden", "אין הרשאה לפעולה זו"},
	{models.ErrInvalidState, http.StatusConflict, "invalid_state", "לא ניתן לבצע את הפעולה במצב הנוכחי של הדיווח"},
	{models.ErrConflict, http.StatusConflict, "stale_version", "הדיווח עודכן על ידי משתמש אחר. רענן ונסה שוב"},
	{models.ErrDuplicate, http.StatusConflict, "duplicate", "כתובת האימייל כבר קיימת במערכת"},
	{models.ErrValidation, http.StatusBadRequest, "validation", "נא למלא את כל השדות"},
	{models.ErrDailyLimitExceeded, http.StatusTooManyRequests, "daily_limit", "המערכת הגיעה למגבלת הדיווחים היומית. אנא פנה לממונה הבטיחות"},
	{models.ErrBackendUnavailable, http.StatusServiceUnavailable, "backend_unavailable", "שגיאת רשת. נסה שוב."},
}

func classify(err error) (int, string, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code, k.message
		}
	}
	return http.StatusInternalServerError, "internal", "אירעה שגיאה. נסה שוב."
}

// respondError writes the error body for err, choosing the status from its kind.
func respondError(c *gin.Context, err error) {
	status, code, message := classify(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err, "api").WithField("path", c.Request.URL.Path).Error("Request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, apiError{Error: err.Error(), Code: code, Message: message})
}

// badRequest reports malformed input that never reached a service.
func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, apiError{
		Error:   err.Error(),
		Code:    "validation",
		Message: "נא למלא את כל השדות",
	})
}
