package auth

import (
	"errors"
	"net/http"

	"github.com/jovaandres/rest-api-ev/internal"
	"github.com/jovaandres/rest-api-ev/internal/account"
	"github.com/jovaandres/rest-api-ev/validators"

	"github.com/gin-gonic/gin"
)

func Register(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data validators.RegisterRequest
	if !bind(c, &data) {
		return
	}

	reg, err := d.Accounts.Register(c.Request.Context(), account.RegisterInput{
		Name:     data.Name,
		Username: data.Username,
		Email:    data.Email,
		Password: data.Password,
	})
	if err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) {
			c.JSON(http.StatusCreated, gin.H{
				"message":   "The email already in use!",
				"requestID": requestID,
			})
			return
		}

		respondError(c, err)
		return
	}

	if reg.Session != nil {
		setSessionCookies(c, d, reg.Session)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Successfully registered!",
		"user":      reg.Account,
		"requestID": requestID,
	})
}
