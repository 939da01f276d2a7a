package http

import (
	"net/http"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/pkg/validation"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	viewers ports.ViewerService
}

func NewSessionHandler(viewers ports.ViewerService) *SessionHandler {
	return &SessionHandler{viewers: viewers}
}

type sessionResponse struct {
	ID             string    `json:"id"`
	Cameras        []string  `json:"cameras"`
	ActiveIndex    int       `json:"active_index"`
	Tier           string    `json:"tier"`
	Mode           string    `json:"mode"`
	ActiveArtifact string    `json:"active_artifact,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toSessionResponse(s *domain.ViewerSession) sessionResponse {
	cameras := make([]string, len(s.Cameras))
	for i, id := range s.Cameras {
		cameras[i] = string(id)
	}
	return sessionResponse{
		ID:             string(s.ID),
		Cameras:        cameras,
		ActiveIndex:    s.ActiveIndex,
		Tier:           string(s.Tier),
		Mode:           string(s.Mode),
		ActiveArtifact: string(s.ActiveArtifact),
		CreatedAt:      s.CreatedAt,
	}
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req struct {
		Cameras    []string `json:"cameras" binding:"required,min=1"`
		StartIndex int      `json:"start_index"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_INPUT", "message": err.Error()})
		return
	}

	cameras := make([]domain.CameraID, len(req.Cameras))
	for i, id := range req.Cameras {
		if err := validation.ValidateCameraID(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_INPUT", "message": err.Error()})
			return
		}
		cameras[i] = domain.CameraID(id)
	}

	session, err := h.viewers.CreateSession(c.Request.Context(), cameras, req.StartIndex)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"session": toSessionResponse(session)})
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.viewers.GetSession(domain.ViewerSessionID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": toSessionResponse(session)})
}

func (h *SessionHandler) EndSession(c *gin.Context) {
	if err := h.viewers.EndSession(c.Request.Context(), domain.ViewerSessionID(c.Param("id"))); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}

func (h *SessionHandler) ChangeQuality(c *gin.Context) {
	var req struct {
		Tier string `json:"tier" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_INPUT", "message": err.Error()})
		return
	}

	tier, ok := domain.ParseQualityTier(req.Tier)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_INPUT", "message": "unknown quality tier"})
		return
	}

	session, err := h.viewers.ChangeQuality(c.Request.Context(), domain.ViewerSessionID(c.Param("id")), tier)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": toSessionResponse(session)})
}

func (h *SessionHandler) Navigate(c *gin.Context) {
	var req struct {
		Direction string `json:"direction" binding:"required,oneof=next previous"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_INPUT", "message": err.Error()})
		return
	}

	session, err := h.viewers.Navigate(c.Request.Context(),
		domain.ViewerSessionID(c.Param("id")), domain.NavigateDirection(req.Direction))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": toSessionResponse(session)})
}

// StartPlayback blocks until the artifact is fully materialized; the
// returned URL is immediately playable.
func (h *SessionHandler) StartPlayback(c *gin.Context) {
	var req struct {
		StartTime time.Time `json:"start_time" binding:"required"`
		EndTime   time.Time `json:"end_time" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_INPUT", "message": err.Error()})
		return
	}

	artifact, err := h.viewers.StartPlayback(c.Request.Context(),
		domain.ViewerSessionID(c.Param("id")), req.StartTime, req.EndTime)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"artifact": gin.H{
			"id":         string(artifact.ID),
			"camera_id":  string(artifact.CameraID),
			"video_url":  artifact.VideoURL,
			"created_at": artifact.CreatedAt,
			"expires_at": artifact.ExpiresAt,
		},
	})
}

func (h *SessionHandler) ClosePlayback(c *gin.Context) {
	if err := h.viewers.ClosePlayback(c.Request.Context(), domain.ViewerSessionID(c.Param("id"))); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "live"})
}
