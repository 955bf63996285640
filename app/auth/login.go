package auth

import (
	"net/http"

	"github.com/jovaandres/rest-api-ev/internal"
	"github.com/jovaandres/rest-api-ev/pkg/middleware"
	"github.com/jovaandres/rest-api-ev/validators"

	"github.com/gin-gonic/gin"
)

func Login(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data validators.LoginRequest
	if !bind(c, &data) {
		return
	}

	a, sess, err := d.Accounts.Login(c.Request.Context(), middleware.SessionFrom(c), data.Email, data.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	setSessionCookies(c, d, sess)

	c.JSON(http.StatusOK, gin.H{
		"user":      a,
		"message":   "Successfully Logged In!",
		"requestID": requestID,
	})
}

func Logout(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	if err := d.Accounts.Logout(c.Request.Context(), middleware.SessionFrom(c)); err != nil {
		respondError(c, err)
		return
	}

	clearSessionCookies(c, d)

	c.JSON(http.StatusOK, gin.H{
		"message":   "Successfully logged out!",
		"requestID": requestID,
	})
}

func GetAuth(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	a, err := d.Accounts.GetAuth(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":      a,
		"requestID": requestID,
	})
}
