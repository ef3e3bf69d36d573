package management

import (
	"net/http"
	"strings"

	"camgate-go/internal/models"
	"github.com/gin-gonic/gin"
)

// acceptRequest promotes one discovery result, picked by its key, into a
// camera. Name, username, entity and secret fill what discovery cannot know.
type acceptRequest struct {
	Key      string  `json:"key" binding:"required"`
	Name     string  `json:"name"`
	Username string  `json:"username"`
	EntityID string  `json:"entity_id"`
	Secret   *string `json:"secret"`
}

type discoveryResultView struct {
	Key string `json:"key"`
	models.DiscoveryResult
}

// DiscoveryResults GET /discovery
func (h *Handler) DiscoveryResults(c *gin.Context) {
	results := h.discovery.Results()
	views := make([]discoveryResultView, 0, len(results))
	for _, r := range results {
		views = append(views, discoveryResultView{Key: r.DedupKey(), DiscoveryResult: r})
	}
	setNoCacheHeaders(c)
	c.JSON(http.StatusOK, gin.H{"scanning": h.discovery.IsScanning(), "results": views})
}

// StartDiscovery POST /discovery/start clears previous results and scans.
func (h *Handler) StartDiscovery(c *gin.Context) {
	h.discovery.Start()
	c.JSON(http.StatusAccepted, gin.H{"scanning": h.discovery.IsScanning()})
}

// StopDiscovery POST /discovery/stop keeps the results gathered so far.
func (h *Handler) StopDiscovery(c *gin.Context) {
	h.discovery.Stop()
	c.JSON(http.StatusOK, gin.H{"scanning": false, "results": len(h.discovery.Results())})
}

// AcceptDiscovery POST /discovery/accept
func (h *Handler) AcceptDiscovery(c *gin.Context) {
	var req acceptRequest
	if !bindJSON(c, &req) {
		return
	}
	var (
		found models.DiscoveryResult
		ok    bool
	)
	for _, r := range h.discovery.Results() {
		if r.DedupKey() == strings.TrimSpace(req.Key) {
			found, ok = r, true
			break
		}
	}
	if !ok {
		respondError(c, http.StatusNotFound, "not_found", "no discovery result with key "+req.Key)
		return
	}

	cfg := found.ToConfig()
	if name := strings.TrimSpace(req.Name); name != "" {
		cfg.Name = name
	}
	cfg.Username = strings.TrimSpace(req.Username)
	cfg.EntityID = strings.TrimSpace(req.EntityID)

	saved, err := h.cameras.AddCamera(c.Request.Context(), cfg, req.Secret)
	if err != nil {
		respondCameraError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}
