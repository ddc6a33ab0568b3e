package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tixgate/tixgate/internal/models"
	"github.com/tixgate/tixgate/internal/payment"
	"github.com/tixgate/tixgate/internal/ticket"
)

// pngBytes is a minimal payload that content sniffing recognizes as
// image/png.
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func submitForm(t *testing.T, router *gin.Engine, ticketID, method string, screenshot []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("ticket_id", ticketID))
	if method != "" {
		require.NoError(t, mw.WriteField("method", method))
	}
	if screenshot != nil {
		part, err := mw.CreateFormFile("screenshot", "proof.png")
		require.NoError(t, err)
		_, err = part.Write(screenshot)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/payments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitPayment_MovesTicketToReview(t *testing.T) {
	app := newTestApp(t)
	organizer := app.addUser(t, models.RoleOrganizer)
	buyer := app.addUser(t, models.RoleAttendee)
	event := app.addEvent(t, organizer)

	tkSvc := app.ticketService(t)
	tk, err := tkSvc.Create(context.Background(), ticket.CreateInput{
		EventID: event.ID, Username: buyer.Username, Email: buyer.Email,
		Phone: buyer.PhoneNumber, UserID: buyer.ID,
	})
	require.NoError(t, err)

	h := NewPaymentHandler(app.paymentService(t), zaptest.NewLogger(t))
	app.router.POST("/v1/payments", asUser(buyer), h.SubmitPayment)

	w := submitForm(t, app.router, tk.ID.String(), "bank_transfer", pngBytes)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	p := body["payment"].(map[string]interface{})
	assert.Equal(t, models.PaymentPending, p["status"])
	assert.Equal(t, event.TicketPrice.String(), p["amount"], "amount is derived server-side")
	tkBody := body["ticket"].(map[string]interface{})
	assert.Equal(t, models.StatusPaymentInReview, tkBody["status"])
}

func TestSubmitPayment_MissingScreenshot(t *testing.T) {
	app := newTestApp(t)
	organizer := app.addUser(t, models.RoleOrganizer)
	buyer := app.addUser(t, models.RoleAttendee)
	event := app.addEvent(t, organizer)

	tkSvc := app.ticketService(t)
	tk, err := tkSvc.Create(context.Background(), ticket.CreateInput{
		EventID: event.ID, Username: buyer.Username, Email: buyer.Email,
		Phone: buyer.PhoneNumber, UserID: buyer.ID,
	})
	require.NoError(t, err)

	h := NewPaymentHandler(app.paymentService(t), zaptest.NewLogger(t))
	app.router.POST("/v1/payments", asUser(buyer), h.SubmitPayment)

	w := submitForm(t, app.router, tk.ID.String(), "bank_transfer", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitPayment_RejectsNonImage(t *testing.T) {
	app := newTestApp(t)
	organizer := app.addUser(t, models.RoleOrganizer)
	buyer := app.addUser(t, models.RoleAttendee)
	event := app.addEvent(t, organizer)

	tkSvc := app.ticketService(t)
	tk, err := tkSvc.Create(context.Background(), ticket.CreateInput{
		EventID: event.ID, Username: buyer.Username, Email: buyer.Email,
		Phone: buyer.PhoneNumber, UserID: buyer.ID,
	})
	require.NoError(t, err)

	h := NewPaymentHandler(app.paymentService(t), zaptest.NewLogger(t))
	app.router.POST("/v1/payments", asUser(buyer), h.SubmitPayment)

	w := submitForm(t, app.router, tk.ID.String(), "bank_transfer", []byte("%PDF-1.4 definitely not an image"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyPayment_ApproveConfirmsTicket(t *testing.T) {
	app := newTestApp(t)
	organizer := app.addUser(t, models.RoleOrganizer)
	admin := app.addUser(t, models.RoleAdmin)
	buyer := app.addUser(t, models.RoleAttendee)
	event := app.addEvent(t, organizer)

	tkSvc := app.ticketService(t)
	paySvc := app.paymentService(t)
	tk, err := tkSvc.Create(context.Background(), ticket.CreateInput{
		EventID: event.ID, Username: buyer.Username, Email: buyer.Email,
		Phone: buyer.PhoneNumber, UserID: buyer.ID,
	})
	require.NoError(t, err)

	p, _, err := paySvc.Submit(context.Background(), payment.SubmitInput{
		TicketID:      tk.ID,
		Method:        "bank_transfer",
		Screenshot:    pngBytes,
		ScreenshotExt: ".png",
		UserID:        buyer.ID,
	})
	require.NoError(t, err)

	h := NewPaymentHandler(paySvc, zaptest.NewLogger(t))
	app.router.PATCH("/v1/payments/:id/verify", asUser(admin), h.VerifyPayment)

	w := doJSON(t, app.router, http.MethodPatch, "/v1/payments/"+p.ID.String()+"/verify",
		gin.H{"action": "approve", "admin_note": "transfer matched"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	pBody := body["payment"].(map[string]interface{})
	assert.Equal(t, models.PaymentApproved, pBody["status"])
	tkBody := body["ticket"].(map[string]interface{})
	assert.Equal(t, models.StatusConfirmed, tkBody["status"])
	assert.NotEmpty(t, tkBody["qr_code_url"])

	// A second decision on the same payment is rejected.
	w = doJSON(t, app.router, http.MethodPatch, "/v1/payments/"+p.ID.String()+"/verify",
		gin.H{"action": "reject"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyPayment_RejectResetsTicket(t *testing.T) {
	app := newTestApp(t)
	organizer := app.addUser(t, models.RoleOrganizer)
	admin := app.addUser(t, models.RoleAdmin)
	buyer := app.addUser(t, models.RoleAttendee)
	event := app.addEvent(t, organizer)

	tkSvc := app.ticketService(t)
	paySvc := app.paymentService(t)
	tk, err := tkSvc.Create(context.Background(), ticket.CreateInput{
		EventID: event.ID, Username: buyer.Username, Email: buyer.Email,
		Phone: buyer.PhoneNumber, UserID: buyer.ID,
	})
	require.NoError(t, err)

	p, _, err := paySvc.Submit(context.Background(), payment.SubmitInput{
		TicketID:      tk.ID,
		Method:        "bank_transfer",
		Screenshot:    pngBytes,
		ScreenshotExt: ".png",
		UserID:        buyer.ID,
	})
	require.NoError(t, err)

	h := NewPaymentHandler(paySvc, zaptest.NewLogger(t))
	app.router.PATCH("/v1/payments/:id/verify", asUser(admin), h.VerifyPayment)

	w := doJSON(t, app.router, http.MethodPatch, "/v1/payments/"+p.ID.String()+"/verify",
		gin.H{"action": "reject", "admin_note": "wrong amount"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	pBody := body["payment"].(map[string]interface{})
	assert.Equal(t, models.PaymentRejected, pBody["status"])
	assert.Equal(t, "wrong amount", pBody["admin_note"])
	tkBody := body["ticket"].(map[string]interface{})
	assert.Equal(t, models.StatusPendingPayment, tkBody["status"])
}
