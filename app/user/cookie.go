package user

import (
	"bitwise74/blog-api/internal"
	"bitwise74/blog-api/pkg/security"
	"net/http"

	"github.com/gin-gonic/gin"
)

// setAuthCookie stores the access token for browser clients. API clients use
// the tokens from the response body instead.
func setAuthCookie(c *gin.Context, d *internal.Deps, pair *security.TokenPair) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("auth_token", pair.Access, int(d.Tokens.AccessTTL().Seconds()), "/", "", d.SecureCookies, true)
}
