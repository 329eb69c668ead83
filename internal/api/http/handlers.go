package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/confbridge/internal/domain/engine"
	"github.com/GriffinCanCode/confbridge/internal/domain/session"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
)

// Conference is the controller surface the handlers drive
type Conference interface {
	Open(ctx context.Context, params types.ConnectionParams) error
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	SetPrivacy(ctx context.Context, device types.Device, private bool) error
	CycleCamera(ctx context.Context) error
	SetMode(ctx context.Context, mode engine.Mode) error
	Resize(ctx context.Context, width, height int) error
	Close(ctx context.Context) error
	Snapshot(ctx context.Context) (session.Snapshot, error)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	conference Conference
	logger     *logging.Logger
	started    time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(conference Conference, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		conference: conference,
		logger:     logger.Named("http"),
		started:    time.Now(),
	}
}

// Register mounts every conference route on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	conf := r.Group("/conference")
	conf.POST("/open", h.OpenConference)
	conf.POST("/connect", h.Connect)
	conf.POST("/disconnect", h.Disconnect)
	conf.POST("/privacy", h.SetPrivacy)
	conf.POST("/camera/cycle", h.CycleCamera)
	conf.POST("/mode", h.SetMode)
	conf.POST("/view", h.Resize)
	conf.POST("/close", h.CloseConference)
	conf.GET("/state", h.State)
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "confbridge",
	})
}

// Health reports controller and engine state
func (h *Handlers) Health(c *gin.Context) {
	snap, err := h.conference.Snapshot(c.Request.Context())
	if err != nil {
		status, _ := StatusFor(err)
		c.JSON(status, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"session":        snap.State,
		"engine":         snap.Engine,
		"pending_calls":  snap.Calls.Pending,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

// OpenRequest carries the room coordinates of openConference
type OpenRequest struct {
	Portal          string `json:"portal" binding:"required"`
	RoomKey         string `json:"roomKey" binding:"required"`
	Pin             string `json:"pin"`
	Name            string `json:"name" binding:"required"`
	MaxParticipants int    `json:"maxParticipants" binding:"omitempty,min=1"`
	LogLevel        string `json:"logLevel"`
	Debug           bool   `json:"debug"`
}

// Params converts the request, applying defaults
func (r OpenRequest) Params() types.ConnectionParams {
	limit := r.MaxParticipants
	if limit == 0 {
		limit = types.DefaultMaxParticipants
	}
	return types.ConnectionParams{
		Portal:          r.Portal,
		RoomKey:         r.RoomKey,
		Pin:             r.Pin,
		Name:            r.Name,
		MaxParticipants: limit,
		LogLevel:        r.LogLevel,
		Debug:           r.Debug,
	}
}

// OpenConference opens the session
func (h *Handlers) OpenConference(c *gin.Context) {
	var req OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.conference.Open(c.Request.Context(), req.Params()); err != nil {
		h.logger.Warn("Open failed", zap.Error(err))
		respondError(c, err)
		return
	}
	h.ok(c)
}

// Connect joins the room
func (h *Handlers) Connect(c *gin.Context) {
	if err := h.conference.Connect(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

// Disconnect leaves the room
func (h *Handlers) Disconnect(c *gin.Context) {
	if err := h.conference.Disconnect(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

// PrivacyRequest toggles a capture device
type PrivacyRequest struct {
	Device  string `json:"device" binding:"required"`
	Privacy bool   `json:"privacy"`
}

// SetPrivacy mutes or unmutes a device
func (h *Handlers) SetPrivacy(c *gin.Context) {
	var req PrivacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	device, err := types.ParseDevice(req.Device)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.conference.SetPrivacy(c.Request.Context(), device, req.Privacy); err != nil {
		respondError(c, err)
		return
	}
	h.ok(c)
}

// CycleCamera switches camera
func (h *Handlers) CycleCamera(c *gin.Context) {
	if err := h.conference.CycleCamera(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	h.ok(c)
}

// ModeRequest carries the host application mode
type ModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// SetMode forwards foreground/background transitions
func (h *Handlers) SetMode(c *gin.Context) {
	var req ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	mode, err := engine.ParseMode(req.Mode)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.conference.SetMode(c.Request.Context(), mode); err != nil {
		respondError(c, err)
		return
	}
	h.ok(c)
}

// ViewRequest carries new surface geometry
type ViewRequest struct {
	Width  int `json:"width" binding:"required,min=1"`
	Height int `json:"height" binding:"required,min=1"`
}

// Resize updates the surface geometry
func (h *Handlers) Resize(c *gin.Context) {
	var req ViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.conference.Resize(c.Request.Context(), req.Width, req.Height); err != nil {
		respondError(c, err)
		return
	}
	h.ok(c)
}

// CloseConference tears the session down
func (h *Handlers) CloseConference(c *gin.Context) {
	if err := h.conference.Close(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	h.ok(c)
}

// State returns the controller snapshot
func (h *Handlers) State(c *gin.Context) {
	snap, err := h.conference.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handlers) ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}
