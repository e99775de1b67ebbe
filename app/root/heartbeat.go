package root

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Heartbeat answers HEAD requests so load balancers can tell the server is up
func Heartbeat(c *gin.Context) {
	c.Status(http.StatusOK)
}
