package root

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Validate only runs behind the JWT middleware, reaching it means the token
// is good
func Validate(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"userID": c.MustGet("userID").(string),
	})
}
