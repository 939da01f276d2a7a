package http

import (
	"fmt"
	"net/http"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const mjpegBoundary = "frame"

func closeDeadline() time.Time {
	return time.Now().Add(time.Second)
}

type LiveHandler struct {
	proxy    ports.LiveProxy
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader
}

func NewLiveHandler(proxy ports.LiveProxy, logger *zap.SugaredLogger) *LiveHandler {
	return &LiveHandler{
		proxy:  proxy,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			// Origin policy is enforced by the CORS middleware.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// StreamMJPEG serves the live feed as a multipart/x-mixed-replace MJPEG
// stream, the format <img> tags consume directly. The viewer stays
// attached until the client disconnects or the upstream fails.
func (h *LiveHandler) StreamMJPEG(c *gin.Context) {
	cameraID := domain.CameraID(c.Param("cameraID"))
	tier, ok := domain.ParseQualityTier(c.Query("tier"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_INPUT", "message": "unknown quality tier"})
		return
	}

	viewer, err := h.proxy.Attach(c.Request.Context(), cameraID, tier)
	if err != nil {
		respondError(c, err)
		return
	}
	defer h.proxy.Detach(viewer)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR", "message": "streaming unsupported"})
		return
	}

	c.Header("Content-Type", "multipart/x-mixed-replace; boundary="+mjpegBoundary)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "close")
	c.Status(http.StatusOK)

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return
		case frame, open := <-viewer.Frames():
			if !open {
				if err := viewer.Err(); err != nil {
					h.logger.Warnw("live stream ended with error",
						"camera_id", cameraID,
						"error", err,
					)
				}
				return
			}
			if _, err := fmt.Fprintf(c.Writer,
				"--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n",
				mjpegBoundary, len(frame)); err != nil {
				return
			}
			if _, err := c.Writer.Write(frame); err != nil {
				return
			}
			if _, err := c.Writer.WriteString("\r\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// StreamWebSocket serves the live feed over a websocket, one binary
// message per frame.
func (h *LiveHandler) StreamWebSocket(c *gin.Context) {
	cameraID := domain.CameraID(c.Param("cameraID"))
	tier, ok := domain.ParseQualityTier(c.Query("tier"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_INPUT", "message": "unknown quality tier"})
		return
	}

	viewer, err := h.proxy.Attach(c.Request.Context(), cameraID, tier)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.proxy.Detach(viewer)
		h.logger.Warnw("websocket upgrade failed", "camera_id", cameraID, "error", err)
		return
	}
	defer conn.Close()
	defer h.proxy.Detach(viewer)

	// Drain control frames so close handshakes are noticed.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-clientGone:
			return
		case frame, open := <-viewer.Frames():
			if !open {
				if err := viewer.Err(); err != nil {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "upstream unavailable"),
						closeDeadline())
				} else {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						closeDeadline())
				}
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		}
	}
}
