package handler

import (
	"net/http"

	"coin-radar/internal/version"

	"github.com/gin-gonic/gin"
)

// Status godoc
// @Summary      Service metadata
// @Description  Returns the service name, description, version, and release date
// @Tags         status
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /status [get]
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"name":         version.Name,
		"description":  version.Description,
		"version":      version.Version,
		"release_date": version.ReleaseDate,
	})
}
