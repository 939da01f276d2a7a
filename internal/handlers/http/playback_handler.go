package http

import (
	"net/http"
	"strings"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"

	"github.com/gin-gonic/gin"
)

type PlaybackHandler struct {
	broker ports.PlaybackBroker
}

func NewPlaybackHandler(broker ports.PlaybackBroker) *PlaybackHandler {
	return &PlaybackHandler{broker: broker}
}

// DeleteArtifact destroys an artifact. Deleting an unknown id succeeds;
// close-playback flows retry and must not fail on a repeat.
func (h *PlaybackHandler) DeleteArtifact(c *gin.Context) {
	id := domain.ArtifactID(c.Param("artifactID"))
	if err := h.broker.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ServeFile streams an artifact's clip. Only names the broker issued
// resolve; everything else is a 404, so no path under the output
// directory is reachable by guessing.
func (h *PlaybackHandler) ServeFile(c *gin.Context) {
	name := c.Param("name")
	id, ok := strings.CutSuffix(name, ".mp4")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND", "message": "file not found"})
		return
	}

	artifact, ok := h.broker.Get(domain.ArtifactID(id))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND", "message": "file not found"})
		return
	}

	c.Header("Content-Type", "video/mp4")
	c.File(artifact.FilePath)
}
