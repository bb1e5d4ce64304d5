package handlers

import (
	"net/http"

	"carebook/utils"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports the last-known state of Redis and Mongo connectivity.
func (hb *HandlerBundle) HealthCheck(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	if !status.Healthy() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
