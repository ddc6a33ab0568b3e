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
	"github.com/tixgate/tixgate/internal/payment"
)

type PaymentHandler struct {
	svc *payment.Service
	log *zap.Logger
}

func NewPaymentHandler(svc *payment.Service, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{svc: svc, log: log}
}

type PaymentResponse struct {
	ID            string `json:"id"`
	TicketID      string `json:"ticket_id"`
	EventID       string `json:"event_id"`
	Amount        string `json:"amount"`
	Method        string `json:"method"`
	ScreenshotURL string `json:"screenshot_url"`
	Status        string `json:"status"`
	AdminNote     string `json:"admin_note,omitempty"`
	VerifiedAt    string `json:"verified_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func paymentResponse(p *models.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:            p.ID.String(),
		TicketID:      p.TicketID.String(),
		EventID:       p.EventID.String(),
		Amount:        p.Amount.String(),
		Method:        p.Method,
		ScreenshotURL: p.ScreenshotURL,
		Status:        p.Status,
		AdminNote:     p.AdminNote,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
	if p.VerifiedAt != nil {
		resp.VerifiedAt = p.VerifiedAt.Format(time.RFC3339)
	}
	return resp
}

// SubmitPayment accepts a multipart form with ticket_id, method and a
// screenshot image. Any amount field a client sends is simply not read;
// the amount comes from the event's ticket price.
func (h *PaymentHandler) SubmitPayment(c *gin.Context) {
	ticketID, err := uuid.Parse(c.PostForm("ticket_id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "ticket_id is required and must be a valid id.")
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	data, ext, err := helpers.ReadImageUpload(c, "screenshot")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	p, t, err := h.svc.Submit(c.Request.Context(), payment.SubmitInput{
		TicketID:      ticketID,
		Method:        c.PostForm("method"),
		Screenshot:    data,
		ScreenshotExt: ext,
		UserID:        userID,
	})
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Payment screenshot uploaded successfully. Your ticket is now in review.",
		"payment": paymentResponse(p),
		"ticket": gin.H{
			"id":     t.ID.String(),
			"status": t.Status,
		},
	})
}

type VerifyPaymentRequest struct {
	Action    string `json:"action" binding:"required"`
	AdminNote string `json:"admin_note"`
}

func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid payment ID.")
		return
	}
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Action is required and must be 'approve' or 'reject'.")
		return
	}
	adminID, ok := middleware.UserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	p, t, err := h.svc.Verify(c.Request.Context(), paymentID, req.Action, req.AdminNote, adminID)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	message := "Payment approved. Ticket confirmed with QR code."
	if p.Status == models.PaymentRejected {
		message = "Payment rejected. Ticket status updated to pending_payment."
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"payment": paymentResponse(p),
		"ticket":  ticketResponse(t),
	})
}

func (h *PaymentHandler) MyPayments(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	payments, err := h.svc.MyPayments(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	out := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, paymentResponse(&payments[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(out), "payments": out})
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid payment ID.")
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	p, err := h.svc.ByID(c.Request.Context(), paymentID, userID)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payment": paymentResponse(p)})
}

func (h *PaymentHandler) PendingPayments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	payments, total, err := h.svc.ListPending(c.Request.Context(), page, limit)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	out := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, paymentResponse(&payments[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"count":       len(out),
		"page":        page,
		"limit":       limit,
		"total_count": total,
		"payments":    out,
	})
}
