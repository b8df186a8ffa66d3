package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agrisense/fieldwatch/module/core/domain"
)

const defaultRecentLimit = 100

type ingestService interface {
	SubmitGeofence(ctx context.Context, vertices []domain.LatLon) (*domain.Geofence, error)
	SubmitPosition(ctx context.Context, deviceID string, lat, lon float64) (*domain.Position, error)
	CurrentGeofence(ctx context.Context) (*domain.Geofence, error)
	RecentPositions(ctx context.Context, limit int) ([]domain.Position, error)
}

type geofenceRequest struct {
	Coordinates []domain.LatLon `json:"coordinates"`
}

type positionRequest struct {
	DeviceID *string  `json:"device_id"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
}

type positionResponse struct {
	DeviceID string  `json:"device_id,omitempty"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Ts       string  `json:"ts"`
}

type GeofenceHandler struct {
	svc ingestService
}

func NewGeofenceHandler(svc ingestService) *GeofenceHandler {
	return &GeofenceHandler{svc: svc}
}

func (h *GeofenceHandler) Register(r *gin.RouterGroup) {
	r.POST("/api/geofence/save", h.SaveGeofence)
	r.GET("/api/geofence", h.GetGeofence)
	r.POST("/api/gps", h.SubmitPosition)
	r.GET("/api/gps/recent", h.RecentPositions)
}

func (h *GeofenceHandler) SaveGeofence(c *gin.Context) {
	var req geofenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON, expected { \"coordinates\": [[lat,lon], ...] }"})
		return
	}

	saved, err := h.svc.SubmitGeofence(c.Request.Context(), req.Coordinates)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save geofence"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "received": saved.Vertices})
}

func (h *GeofenceHandler) GetGeofence(c *gin.Context) {
	fence, err := h.svc.CurrentGeofence(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNoGeofence) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no geofence saved yet"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch geofence"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"coordinates": fence.Vertices})
}

func (h *GeofenceHandler) SubmitPosition(c *gin.Context) {
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Lat == nil || req.Lon == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON, expected { \"lat\": <number>, \"lon\": <number> }"})
		return
	}

	deviceID := ""
	if req.DeviceID != nil {
		deviceID = *req.DeviceID
	}

	saved, err := h.svc.SubmitPosition(c.Request.Context(), deviceID, *req.Lat, *req.Lon)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save position"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "received": positionResponse{
		DeviceID: saved.DeviceID,
		Lat:      saved.Lat,
		Lon:      saved.Lon,
		Ts:       saved.ReceivedAt.Format(time.RFC3339Nano),
	}})
}

func (h *GeofenceHandler) RecentPositions(c *gin.Context) {
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
			return
		}
		limit = parsed
	}

	reports, err := h.svc.RecentPositions(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch positions"})
		return
	}

	results := make([]positionResponse, len(reports))
	for i, p := range reports {
		results[i] = positionResponse{
			DeviceID: p.DeviceID,
			Lat:      p.Lat,
			Lon:      p.Lon,
			Ts:       p.ReceivedAt.Format(time.RFC3339Nano),
		}
	}
	c.JSON(http.StatusOK, results)
}
