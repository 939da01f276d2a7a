package http

import (
	"net/http"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"

	"github.com/gin-gonic/gin"
)

type CameraHandler struct {
	cameras ports.CameraRepository
}

func NewCameraHandler(cameras ports.CameraRepository) *CameraHandler {
	return &CameraHandler{cameras: cameras}
}

type cameraResponse struct {
	ID           string    `json:"id"`
	DivisionName string    `json:"division_name"`
	DistrictName string    `json:"district_name"`
	WorkID       string    `json:"work_id,omitempty"`
	Status       string    `json:"status"`
	LastUpdated  time.Time `json:"last_updated"`
	HasRtsp      bool      `json:"has_rtsp"`
	HasRtmp      bool      `json:"has_rtmp"`
}

// toCameraResponse strips upstream URLs; resolved sources never cross
// the API boundary.
func toCameraResponse(cam *domain.Camera) cameraResponse {
	return cameraResponse{
		ID:           string(cam.ID),
		DivisionName: cam.DivisionName,
		DistrictName: cam.DistrictName,
		WorkID:       cam.WorkID,
		Status:       cam.Status,
		LastUpdated:  cam.LastUpdated,
		HasRtsp:      cam.RtspURL != "",
		HasRtmp:      cam.RtmpURL != "",
	}
}

func (h *CameraHandler) ListCameras(c *gin.Context) {
	cameras, err := h.cameras.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]cameraResponse, 0, len(cameras))
	for _, cam := range cameras {
		out = append(out, toCameraResponse(cam))
	}

	c.JSON(http.StatusOK, gin.H{"cameras": out})
}

func (h *CameraHandler) GetCamera(c *gin.Context) {
	cam, err := h.cameras.GetByID(c.Request.Context(), domain.CameraID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"camera": toCameraResponse(cam)})
}
