package handlers

import (
	"net/http"

	"innkeeper/utils"

	"github.com/gin-gonic/gin"
)

// Health reports the latest external service health snapshot.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, utils.GetHealthStatus())
}
