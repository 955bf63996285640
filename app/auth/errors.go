// Package auth contains the account endpoints: registration, login, logout,
// email verification and password reset
package auth

import (
	"errors"
	"net/http"

	"github.com/jovaandres/rest-api-ev/internal/account"
	"github.com/jovaandres/rest-api-ev/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errorStatus = []struct {
	err    error
	status int
	msg    string
}{
	{account.ErrInvalidInput, http.StatusUnprocessableEntity, "Invalid input"},
	{account.ErrWeakPassword, http.StatusUnprocessableEntity, "Password must be at least 8 characters long"},
	{account.ErrDuplicateUsername, http.StatusConflict, "The username already in use!"},
	{account.ErrInvalidCredentials, http.StatusUnprocessableEntity, "Invalid email or password!"},
	{account.ErrAlreadyLoggedIn, http.StatusBadRequest, "You are already logged in!"},
	{account.ErrUnauthenticated, http.StatusUnauthorized, "User not authenticated"},
	{account.ErrAlreadyVerified, http.StatusForbidden, "Email already verified"},
	{account.ErrNotFound, http.StatusNotFound, "User not found!"},
	{account.ErrInvalidToken, http.StatusNotFound, "Invalid token or token is expired"},
	{account.ErrExpiredToken, http.StatusNotFound, "Invalid token or token is expired"},
}

// respondError writes the status and message err maps to. Unknown errors
// are logged and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	requestID := c.MustGet("requestID").(string)

	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			c.JSON(e.status, gin.H{
				"error":     e.msg,
				"requestID": requestID,
			})
			return
		}
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":     "Internal server error",
		"requestID": requestID,
	})

	zap.L().Error("Request failed", zap.Error(err), zap.String("requestID", requestID))
}

// bind decodes the JSON body into s and checks its rules. It writes the
// response itself and returns false when the request can't go on.
func bind(c *gin.Context, s validators.Schema) bool {
	requestID := c.MustGet("requestID").(string)

	if err := c.ShouldBindJSON(s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return false
	}

	return check(c, s)
}

func check(c *gin.Context, s validators.Schema) bool {
	if err := validators.Check(s); err != nil {
		requestID := c.MustGet("requestID").(string)

		var verr *validators.ValidationError
		if !errors.As(err, &verr) {
			respondError(c, err)
			return false
		}

		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     verr.Error(),
			"requestID": requestID,
		})
		return false
	}

	return true
}
