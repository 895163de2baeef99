package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"corplandlords/wireboard/internal/api/middleware"
	"corplandlords/wireboard/internal/models"
	"corplandlords/wireboard/internal/services"
	"github.com/gin-gonic/gin"
)

const defaultHeartbeat = 25 * time.Second

// RestWireHandler serves the public wire board.
type RestWireHandler struct {
	wires       services.IWireService
	heartbeat   time.Duration
	maxPageSize int
}

// NewRestWireHandler creates a new RestWireHandler. maxPageSize caps the limit
// query parameter; zero means no cap.
func NewRestWireHandler(wires services.IWireService, maxPageSize int) *RestWireHandler {
	return &RestWireHandler{wires: wires, heartbeat: defaultHeartbeat, maxPageSize: maxPageSize}
}

// parseListingFilter reads type, locations (comma separated or repeated),
// search and minBudget from the query string.
func parseListingFilter(c *gin.Context) (services.ListingFilter, bool) {
	var f services.ListingFilter

	rt, ok := models.ParseRequestType(c.Query("type"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": gin.H{"type": "unknown request type"}})
		return f, false
	}
	f.RequestType = rt

	for _, raw := range c.QueryArray("locations") {
		for _, loc := range strings.Split(raw, ",") {
			if loc = strings.TrimSpace(loc); loc != "" {
				f.Locations = append(f.Locations, loc)
			}
		}
	}
	f.Search = strings.TrimSpace(c.Query("search"))

	if mb := strings.TrimSpace(c.Query("minBudget")); mb != "" {
		v, err := strconv.ParseInt(mb, 10, 64)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": gin.H{"minBudget": "must be a non-negative whole number"}})
			return f, false
		}
		f.MinBudget = v
	}
	return f, true
}

func parseNonNegative(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": gin.H{name: "must be a non-negative whole number"}})
		return 0, false
	}
	return v, true
}

// ListWires handles GET /v1/wires. count is the number of matches after
// refinement; offset and limit page through them.
func (h *RestWireHandler) ListWires(c *gin.Context) {
	f, ok := parseListingFilter(c)
	if !ok {
		return
	}
	offset, ok := parseNonNegative(c, "offset")
	if !ok {
		return
	}
	limit, ok := parseNonNegative(c, "limit")
	if !ok {
		return
	}
	if h.maxPageSize > 0 && (limit == 0 || limit > h.maxPageSize) {
		limit = h.maxPageSize
	}

	wires, err := h.wires.QueryPublished(c.Request.Context(), f.Query())
	if err != nil {
		respondError(c, err)
		return
	}
	wires = services.RefineListing(wires, f)
	c.JSON(http.StatusOK, gin.H{
		"data":   services.Page(wires, offset, limit),
		"count":  len(wires),
		"offset": offset,
		"limit":  limit,
	})
}

// StreamWires handles GET /v1/wires/stream. Every change to the board sends a
// "wires" event with the full filtered list.
func (h *RestWireHandler) StreamWires(c *gin.Context) {
	f, ok := parseListingFilter(c)
	if !ok {
		return
	}
	box := newMailbox()
	sub := h.wires.Subscribe(c.Request.Context(), f.Query(),
		func(wires []*models.Wire) {
			box.put(sseMessage{event: "wires", data: services.RefineListing(wires, f)})
		},
		func(err error) {
			box.put(sseMessage{event: "error", data: errorPayload(err)})
		},
	)
	defer sub.Unsubscribe()
	serveSSE(c, box, h.heartbeat)
}

// GetWire handles GET /v1/wires/:id. Unpublished wires are not visible on the board.
func (h *RestWireHandler) GetWire(c *gin.Context) {
	id, ok := parseWireID(c)
	if !ok {
		return
	}
	w, err := h.wires.FindWireByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if w == nil || !w.Published {
		respondError(c, services.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, w)
}

// StreamWire handles GET /v1/wires/:id/stream. It sends "wire" while the wire is
// published and "gone" otherwise.
func (h *RestWireHandler) StreamWire(c *gin.Context) {
	id, ok := parseWireID(c)
	if !ok {
		return
	}
	box := newMailbox()
	sub := h.wires.SubscribeWire(c.Request.Context(), id,
		func(w *models.Wire) {
			if w == nil || !w.Published {
				box.put(sseMessage{event: "gone", data: gin.H{"id": id.Hex()}})
				return
			}
			box.put(sseMessage{event: "wire", data: w})
		},
		func(err error) {
			box.put(sseMessage{event: "error", data: errorPayload(err)})
		},
	)
	defer sub.Unsubscribe()
	serveSSE(c, box, h.heartbeat)
}

func (h *RestWireHandler) react(c *gin.Context, fn func(userID string) error) {
	if err := fn(middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Like handles POST /v1/wires/:id/like
func (h *RestWireHandler) Like(c *gin.Context) {
	id, ok := parseWireID(c)
	if !ok {
		return
	}
	h.react(c, func(uid string) error { return h.wires.AddLike(c.Request.Context(), id, uid) })
}

// Unlike handles DELETE /v1/wires/:id/like
func (h *RestWireHandler) Unlike(c *gin.Context) {
	id, ok := parseWireID(c)
	if !ok {
		return
	}
	h.react(c, func(uid string) error { return h.wires.RemoveLike(c.Request.Context(), id, uid) })
}

// SetFeedback handles PUT /v1/wires/:id/feedback
func (h *RestWireHandler) SetFeedback(c *gin.Context) {
	id, ok := parseWireID(c)
	if !ok {
		return
	}
	var req struct {
		Feedback services.BudgetFeedback `json:"feedback" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	h.react(c, func(uid string) error { return h.wires.SetBudgetFeedback(c.Request.Context(), id, uid, req.Feedback) })
}

// Respond handles POST /v1/wires/:id/responses
func (h *RestWireHandler) Respond(c *gin.Context) {
	id, ok := parseWireID(c)
	if !ok {
		return
	}
	h.react(c, func(uid string) error { return h.wires.AddResponse(c.Request.Context(), id, uid) })
}

// Publish promotes a submitted wire to the public board. Admin only.
func (h *RestWireHandler) Publish(c *gin.Context) {
	id, ok := parseWireID(c)
	if !ok {
		return
	}
	if err := h.wires.PublishWire(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
