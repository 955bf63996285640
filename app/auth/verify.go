package auth

import (
	"net/http"

	"github.com/jovaandres/rest-api-ev/internal"
	"github.com/jovaandres/rest-api-ev/validators"

	"github.com/gin-gonic/gin"
)

func RequestVerification(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data validators.RequestVerificationRequest
	if !bind(c, &data) {
		return
	}

	if err := d.Accounts.RequestVerification(c.Request.Context(), data.Email); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Email verification link sent!",
		"requestID": requestID,
	})
}

// Verify accepts the email and token either as JSON (POST /verify) or as
// path parameters (GET /verify/:email/:token, the link sent by mail).
func Verify(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data validators.VerifyRequest
	if c.Param("token") != "" {
		data.Email = c.Param("email")
		data.Token = c.Param("token")
		if !check(c, &data) {
			return
		}
	} else if !bind(c, &data) {
		return
	}

	if err := d.Accounts.Verify(c.Request.Context(), data.Email, data.Token); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Email verified",
		"requestID": requestID,
	})
}
