package helpers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tixgate/tixgate/internal/apperr"
)

type ErrorResponse struct {
	Success      bool   `json:"success"`
	Error        string `json:"error"`
	Message      string `json:"message"`
	TicketStatus string `json:"ticket_status,omitempty"`
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.JSON(statusCode, ErrorResponse{
		Success: false,
		Error:   http.StatusText(statusCode),
		Message: customMessage,
	})
}

// RespondWithAppError maps the core error taxonomy onto HTTP. InvalidState
// responses carry the ticket's current status when known, so a scan
// rejection can explain itself at the door.
func RespondWithAppError(c *gin.Context, err error) {
	var appErr *apperr.Error
	status := http.StatusInternalServerError
	message := "Internal server error"
	ticketStatus := ""

	if errors.As(err, &appErr) {
		message = appErr.Message
		ticketStatus = appErr.TicketStatus
	}

	if appErr != nil {
		switch appErr.Kind {
		case apperr.KindNotFound:
			status = http.StatusNotFound
		case apperr.KindForbidden:
			status = http.StatusForbidden
		case apperr.KindValidation, apperr.KindInvalidState:
			status = http.StatusBadRequest
		default:
			status = http.StatusInternalServerError
			message = "Internal server error"
		}
	}

	c.JSON(status, ErrorResponse{
		Success:      false,
		Error:        http.StatusText(status),
		Message:      message,
		TicketStatus: ticketStatus,
	})
}
