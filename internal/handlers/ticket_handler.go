package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tixgate/tixgate/internal/helpers"
	"github.com/tixgate/tixgate/internal/middleware"
	"github.com/tixgate/tixgate/internal/models"
	"github.com/tixgate/tixgate/internal/store"
	"github.com/tixgate/tixgate/internal/ticket"
)

type TicketHandler struct {
	svc *ticket.Service
	log *zap.Logger
}

func NewTicketHandler(svc *ticket.Service, log *zap.Logger) *TicketHandler {
	return &TicketHandler{svc: svc, log: log}
}

type CreateTicketRequest struct {
	EventID  string `json:"event_id" binding:"required"`
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
}

type TicketResponse struct {
	ID                   string `json:"id"`
	EventID              string `json:"event_id"`
	Username             string `json:"username"`
	Email                string `json:"email"`
	Phone                string `json:"phone"`
	Status               string `json:"status"`
	AccessKey            string `json:"access_key"`
	QRCodeURL            string `json:"qr_code_url,omitempty"`
	PaymentScreenshotURL string `json:"payment_screenshot_url,omitempty"`
	CreatedAt            string `json:"created_at"`
	UpdatedAt            string `json:"updated_at"`
}

func ticketResponse(t *models.Ticket) TicketResponse {
	return TicketResponse{
		ID:                   t.ID.String(),
		EventID:              t.EventID.String(),
		Username:             t.Username,
		Email:                t.Email,
		Phone:                t.Phone,
		Status:               t.Status,
		AccessKey:            t.AccessKey,
		QRCodeURL:            t.QRCodeURL,
		PaymentScreenshotURL: t.PaymentScreenshotURL,
		CreatedAt:            t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            t.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *TicketHandler) CreateTicket(c *gin.Context) {
	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event ID.")
		return
	}

	created, err := h.svc.Create(c.Request.Context(), ticket.CreateInput{
		EventID:  eventID,
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		UserID:   userID,
	})
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Ticket created successfully. Please submit payment.",
		"ticket":  ticketResponse(created),
	})
}

func (h *TicketHandler) MyTickets(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	tickets, err := h.svc.MyTickets(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, ticketResponse(&tickets[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(out), "tickets": out})
}

func (h *TicketHandler) GetTicket(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid ticket ID.")
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	t, err := h.svc.ByID(c.Request.Context(), ticketID, userID)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "ticket": ticketResponse(t)})
}

func (h *TicketHandler) TicketsByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event ID.")
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	tickets, err := h.svc.ByEvent(c.Request.Context(), eventID, userID)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, ticketResponse(&tickets[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(out), "tickets": out})
}

type ScanRequest struct {
	AccessKey string `json:"access_key" binding:"required"`
}

type ScanResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	TicketID  string      `json:"ticket_id"`
	Status    string      `json:"status"`
	Event     interface{} `json:"event,omitempty"`
	Buyer     interface{} `json:"buyer,omitempty"`
	ScannedAt string      `json:"scanned_at"`
}

func (h *TicketHandler) ScanTicket(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Access key is required.")
		return
	}

	result, err := h.svc.Scan(c.Request.Context(), req.AccessKey)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	resp := ScanResponse{
		Success:   true,
		Message:   "Ticket validated successfully. Entry granted.",
		TicketID:  result.Ticket.ID.String(),
		Status:    result.Ticket.Status,
		Event:     eventResponse(result.Event),
		ScannedAt: result.ScannedAt.Format(time.RFC3339),
	}
	if result.Buyer != nil {
		resp.Buyer = UserBrief{
			ID:       result.Buyer.ID.String(),
			Username: result.Buyer.Username,
			Email:    result.Buyer.Email,
			Role:     result.Buyer.Role.Name,
		}
	}
	c.JSON(http.StatusOK, resp)
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *TicketHandler) UpdateTicketStatus(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid ticket ID.")
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Status is required.")
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	t, err := h.svc.UpdateStatus(c.Request.Context(), ticketID, req.Status, userID)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	message := "Ticket status updated successfully."
	if t.Status == models.StatusExpired && req.Status != models.StatusExpired {
		message = "Event has ended. Ticket marked as expired."
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "ticket": ticketResponse(t)})
}

func (h *TicketHandler) DeleteTicket(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid ticket ID.")
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	t, err := h.svc.Delete(c.Request.Context(), ticketID, userID)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Ticket deleted successfully.",
		"deleted_ticket": gin.H{
			"id":     t.ID.String(),
			"status": t.Status,
		},
	})
}

func (h *TicketHandler) ListAllTickets(c *gin.Context) {
	filter := store.TicketFilter{Status: c.Query("status")}
	if v := c.Query("event_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event ID filter.")
			return
		}
		filter.EventID = id
	}
	if v := c.Query("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid user ID filter.")
			return
		}
		filter.UserID = id
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	tickets, total, err := h.svc.ListAll(c.Request.Context(), filter)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, ticketResponse(&tickets[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"count":       len(out),
		"page":        filter.Page,
		"limit":       filter.Limit,
		"total_count": total,
		"tickets":     out,
	})
}
