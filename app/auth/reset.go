package auth

import (
	"errors"
	"net/http"

	"github.com/jovaandres/rest-api-ev/internal"
	"github.com/jovaandres/rest-api-ev/internal/account"
	"github.com/jovaandres/rest-api-ev/validators"

	"github.com/gin-gonic/gin"
)

// RequestReset mails a password reset link. The email comes from the path
// (POST /reset/:email) or the JSON body (POST /reset).
func RequestReset(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data validators.RequestResetRequest
	if email := c.Param("email"); email != "" {
		data.Email = email
		if !check(c, &data) {
			return
		}
	} else if !bind(c, &data) {
		return
	}

	if err := d.Accounts.RequestReset(c.Request.Context(), data.Email); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "Email not found",
				"requestID": requestID,
			})
			return
		}

		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Email reset link sent!",
		"requestID": requestID,
	})
}

func ChangePassword(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data validators.ChangePasswordRequest
	if !bind(c, &data) {
		return
	}

	err := d.Accounts.ChangePassword(c.Request.Context(), account.ChangePasswordInput{
		Email:       data.Email,
		Token:       data.Token,
		NewPassword: data.NewPass,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Password updated",
		"requestID": requestID,
	})
}
