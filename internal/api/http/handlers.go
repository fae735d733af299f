package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/formstack/internal/domain/asset"
	"github.com/GriffinCanCode/formstack/internal/domain/form"
	"github.com/GriffinCanCode/formstack/internal/domain/manager"
	"github.com/GriffinCanCode/formstack/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/formstack/internal/shared/dispatch"
	"github.com/GriffinCanCode/formstack/internal/shared/future"
	"github.com/GriffinCanCode/formstack/internal/shared/types"
	"github.com/GriffinCanCode/formstack/internal/shared/utils"
)

// DefaultCallTimeout bounds how long a request waits for the UI goroutine
// and for a pending open.
const DefaultCallTimeout = 10 * time.Second

// AssetLister is satisfied by *asset.Catalog
type AssetLister interface {
	List() []asset.Entry
}

// Handlers serves the inspector API. Every manager call is marshalled onto
// the goroutine that ticks the manager.
type Handlers struct {
	manager *manager.Manager
	queue   *dispatch.Queue
	assets  AssetLister
	metrics *monitoring.Metrics
	logger  *zap.Logger
	timeout time.Duration
}

// NewHandlers creates a new handler set. assets may be nil when the asset
// source cannot be listed.
func NewHandlers(m *manager.Manager, assets AssetLister, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		manager: m,
		queue:   m.Queue(),
		assets:  assets,
		logger:  logger.Named("api"),
		timeout: DefaultCallTimeout,
	}
}

// WithMetrics adds the metric totals to the health report
func (h *Handlers) WithMetrics(metrics *monitoring.Metrics) *Handlers {
	h.metrics = metrics
	return h
}

// WithTimeout overrides DefaultCallTimeout
func (h *Handlers) WithTimeout(d time.Duration) *Handlers {
	h.timeout = d
	return h
}

// OpenRequest opens a form
type OpenRequest struct {
	Asset              string `json:"asset" binding:"required"`
	Group              string `json:"group" binding:"required"`
	PauseCoveredUIForm bool   `json:"pause_covered_ui_form"`
}

// AssetRequest targets the open form of an asset
type AssetRequest struct {
	Asset string `json:"asset" binding:"required"`
}

// GroupRequest registers a group
type GroupRequest struct {
	Name  string `json:"name" binding:"required"`
	Depth int    `json:"depth"`
}

// CapacityRequest resizes the cache
type CapacityRequest struct {
	Capacity *int `json:"capacity" binding:"required"`
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "formstack inspector",
		"version": "0.1.0",
	})
}

// Health reports manager statistics
func (h *Handlers) Health(c *gin.Context) {
	var (
		stats    types.Stats
		shutdown bool
	)
	if !h.call(c, func() {
		stats = h.manager.Stats()
		shutdown = h.manager.IsShutdown()
	}) {
		return
	}

	status := "healthy"
	code := http.StatusOK
	if shutdown {
		status = "shut down"
		code = http.StatusServiceUnavailable
	}
	body := gin.H{"status": status, "manager": stats}
	if h.metrics != nil {
		body["metrics"] = h.metrics.GetSnapshot()
	}
	c.JSON(code, body)
}

// Snapshot returns the whole manager state
func (h *Handlers) Snapshot(c *gin.Context) {
	var snap types.Snapshot
	if !h.call(c, func() { snap = h.manager.Snapshot() }) {
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Stats returns manager statistics
func (h *Handlers) Stats(c *gin.Context) {
	var stats types.Stats
	if !h.call(c, func() { stats = h.manager.Stats() }) {
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListGroups lists groups in depth order
func (h *Handlers) ListGroups(c *gin.Context) {
	var groups []types.GroupSnapshot
	if !h.call(c, func() { groups = h.manager.Snapshot().Groups }) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// GetGroup returns one group's stack
func (h *Handlers) GetGroup(c *gin.Context) {
	name := c.Param("name")

	var (
		snap  types.GroupSnapshot
		found bool
	)
	if !h.call(c, func() {
		if g := h.manager.GetGroup(name); g != nil {
			snap, found = g.Snapshot(), true
		}
	}) {
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found", "group": name})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// AddGroup registers a group
func (h *Handlers) AddGroup(c *gin.Context) {
	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateGroupName(req.Name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var exists, added bool
	if !h.call(c, func() {
		exists = h.manager.HasGroup(req.Name)
		added = h.manager.AddGroup(req.Name, req.Depth)
	}) {
		return
	}

	switch {
	case added:
		c.JSON(http.StatusCreated, gin.H{"success": true, "group": req.Name, "depth": req.Depth})
	case exists:
		c.JSON(http.StatusConflict, gin.H{"error": "group already exists", "group": req.Name})
	default:
		h.fail(c, form.ErrShutdown)
	}
}

// RemoveGroup unregisters a group, closing its forms
func (h *Handlers) RemoveGroup(c *gin.Context) {
	name := c.Param("name")

	var removed bool
	if !h.call(c, func() { removed = h.manager.RemoveGroup(name) }) {
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found", "group": name})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "group": name})
}

// PauseGroup pauses every form of a group
func (h *Handlers) PauseGroup(c *gin.Context) {
	h.setGroupPaused(c, true)
}

// ResumeGroup lifts a group pause
func (h *Handlers) ResumeGroup(c *gin.Context) {
	h.setGroupPaused(c, false)
}

func (h *Handlers) setGroupPaused(c *gin.Context, paused bool) {
	name := c.Param("name")

	var ok bool
	if !h.call(c, func() {
		if paused {
			ok = h.manager.PauseGroup(name)
		} else {
			ok = h.manager.ResumeGroup(name)
		}
	}) {
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found", "group": name})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "group": name, "paused": paused})
}

// ListForms lists open forms, top of the deepest group first
func (h *Handlers) ListForms(c *gin.Context) {
	var forms []types.FormSnapshot
	if !h.call(c, func() {
		groups := h.manager.Snapshot().Groups
		for i := len(groups) - 1; i >= 0; i-- {
			forms = append(forms, groups[i].Forms...)
		}
	}) {
		return
	}
	if forms == nil {
		forms = []types.FormSnapshot{}
	}
	c.JSON(http.StatusOK, gin.H{"forms": forms})
}

// GetForm returns the open form with a serial id
func (h *Handlers) GetForm(c *gin.Context) {
	serialID, err := strconv.ParseInt(c.Param("serial"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "serial id must be an integer"})
		return
	}

	var (
		snap  types.FormSnapshot
		found bool
	)
	if !h.call(c, func() {
		if f := h.manager.GetFormBySerial(serialID); f != nil {
			snap, found = h.manager.Describe(f), true
		}
	}) {
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "form not open", "serial_id": serialID})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// OpenForm opens a form and waits until it is shown or the load failed
func (h *Handlers) OpenForm(c *gin.Context) {
	var req OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var pending *future.Future[*form.Instance]
	if !h.call(c, func() { pending = h.manager.Open(req.Asset, req.Group, req.PauseCoveredUIForm) }) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	f, err := pending.Await(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}

	var snap types.FormSnapshot
	if !h.call(c, func() { snap = h.manager.Describe(f) }) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "form": snap})
}

// CloseForm closes the open form of an asset
func (h *Handlers) CloseForm(c *gin.Context) {
	h.formAction(c, "close", h.manager.Close)
}

// RefocusForm brings the open form of an asset to the top of its group
func (h *Handlers) RefocusForm(c *gin.Context) {
	h.formAction(c, "refocus", h.manager.Refocus)
}

func (h *Handlers) formAction(c *gin.Context, op string, action func(assetName string) bool) {
	var req AssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var ok bool
	if !h.call(c, func() { ok = action(req.Asset) }) {
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "form not open", "asset": req.Asset})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "asset": req.Asset, "action": op})
}

// GetCache lists cached forms, most recently used first
func (h *Handlers) GetCache(c *gin.Context) {
	var snap types.CacheSnapshot
	if !h.call(c, func() { snap = h.manager.Snapshot().Cache }) {
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SetCacheCapacity resizes the cache
func (h *Handlers) SetCacheCapacity(c *gin.Context) {
	var req CapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var err error
	var stats types.Stats
	if !h.call(c, func() {
		err = h.manager.SetCacheCapacity(*req.Capacity)
		stats = h.manager.Stats()
	}) {
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "capacity": stats.Capacity, "cached_forms": stats.CachedForms})
}

// ListAssets lists the asset catalog
func (h *Handlers) ListAssets(c *gin.Context) {
	if h.assets == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset source cannot be listed"})
		return
	}
	entries := h.assets.List()
	c.JSON(http.StatusOK, gin.H{"assets": entries, "count": len(entries)})
}

// call runs fn on the UI goroutine and writes an error response when it
// could not run.
func (h *Handlers) call(c *gin.Context, fn func()) bool {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.queue.Invoke(ctx, fn); err != nil {
		h.fail(c, err)
		return false
	}
	return true
}

func (h *Handlers) fail(c *gin.Context, err error) {
	code := StatusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Warn("request failed", zap.String("path", c.FullPath()), zap.Int("status", code), zap.Error(err))
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

// StatusFor maps manager errors to HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, form.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, form.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, form.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, form.ErrLoad):
		return http.StatusBadGateway
	case errors.Is(err, form.ErrShutdown), errors.Is(err, dispatch.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
