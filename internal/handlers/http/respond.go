package http

import (
	stderrors "errors"
	"net/http"

	"streamgate/internal/core/domain"
	"streamgate/pkg/errors"

	"github.com/gin-gonic/gin"
)

// respondError translates domain sentinels into the structured error
// body clients rely on. Unknown errors become a 500 without leaking
// internals.
func respondError(c *gin.Context, err error) {
	appErr := toAppError(err)
	c.JSON(appErr.HTTPStatus, gin.H{
		"error":   string(appErr.Code),
		"message": appErr.Message,
	})
}

func toAppError(err error) *errors.AppError {
	if appErr := errors.GetAppError(err); appErr != nil {
		return appErr
	}

	switch {
	case stderrors.Is(err, domain.ErrCameraNotFound):
		return errors.NewNotFoundError("camera")
	case stderrors.Is(err, domain.ErrSessionNotFound):
		return errors.NewNotFoundError("session")
	case stderrors.Is(err, domain.ErrInvalidTimeWindow):
		return errors.NewInvalidTimeWindowError(err.Error())
	case stderrors.Is(err, domain.ErrNoRecordingFound):
		return errors.NewNoRecordingFoundError()
	case stderrors.Is(err, domain.ErrUpstreamUnavailable):
		return errors.NewUpstreamUnavailableError(err.Error())
	case stderrors.Is(err, domain.ErrBusy):
		return errors.NewBusyError()
	case stderrors.Is(err, domain.ErrInvalidStateTransition):
		return errors.NewInvalidStateTransitionError(err.Error())
	default:
		return errors.NewAppError(errors.ErrCodeInternal, "internal server error", http.StatusInternalServerError)
	}
}
