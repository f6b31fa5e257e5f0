package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safetyfirst/backend/internal/services"
)

type LocationController struct {
	locations *services.LocationService
}

func NewLocationController(locations *services.LocationService) *LocationController {
	return &LocationController{locations: locations}
}

func (lc *LocationController) List(c *gin.Context) {
	locs, err := lc.locations.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": locs})
}
