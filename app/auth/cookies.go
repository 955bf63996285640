package auth

import (
	"net/http"

	"github.com/jovaandres/rest-api-ev/internal"
	"github.com/jovaandres/rest-api-ev/internal/token"
	"github.com/jovaandres/rest-api-ev/pkg/middleware"

	"github.com/gin-gonic/gin"
)

const loggedInCookie = "logged_in"

func setSessionCookies(c *gin.Context, d *internal.Deps, t *token.Token) {
	maxAge := int(d.SessionTTL.Seconds())

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AuthCookie, t.Raw, maxAge, "/", "", d.SecureCookies, true)
	c.SetCookie(loggedInCookie, "1", maxAge, "/", "", d.SecureCookies, false)
}

func clearSessionCookies(c *gin.Context, d *internal.Deps) {
	c.SetCookie(middleware.AuthCookie, "", -1, "/", "", d.SecureCookies, true)
	c.SetCookie(loggedInCookie, "", -1, "/", "", d.SecureCookies, false)
}
