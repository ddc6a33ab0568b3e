package payment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tixgate/tixgate/internal/accesskey"
	"github.com/tixgate/tixgate/internal/apperr"
	"github.com/tixgate/tixgate/internal/models"
	"github.com/tixgate/tixgate/internal/storage"
	"github.com/tixgate/tixgate/internal/store"
	"github.com/tixgate/tixgate/internal/ticket"
)

type memQR struct {
	files *storage.MemoryStore
}

func (m memQR) Issue(payload string) (string, error) {
	return m.files.Save("qrcodes", ".png", []byte(payload))
}

type testEnv struct {
	tickets   *store.MemoryTicketStore
	payments  *store.MemoryPaymentStore
	events    *store.MemoryEventStore
	users     *store.MemoryUserStore
	files     *storage.MemoryStore
	svc       *Service
	ticketSvc *ticket.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		tickets:  store.NewMemoryTicketStore(),
		payments: store.NewMemoryPaymentStore(),
		events:   store.NewMemoryEventStore(),
		users:    store.NewMemoryUserStore(),
		files:    storage.NewMemoryStore(),
	}
	keys := accesskey.NewGenerator()
	log := zaptest.NewLogger(t)
	qr := memQR{env.files}

	env.svc = NewService(Deps{
		Tickets:  env.tickets,
		Payments: env.payments,
		Events:   env.events,
		Users:    env.users,
		Files:    env.files,
		QR:       qr,
		Keys:     keys,
		Logger:   log,
	})
	env.ticketSvc = ticket.NewService(ticket.Deps{
		Tickets:  env.tickets,
		Payments: env.payments,
		Events:   env.events,
		Users:    env.users,
		Files:    env.files,
		QR:       qr,
		Keys:     keys,
		Logger:   log,
	})
	return env
}

var userSeq int

func (e *testEnv) addUser(t *testing.T, roleName string) *models.User {
	t.Helper()

	role, err := e.users.RoleByName(context.Background(), roleName)
	require.NoError(t, err)

	userSeq++
	u := &models.User{
		Username:    fmt.Sprintf("%s%d", roleName, userSeq),
		FullName:    "Test " + roleName,
		Email:       fmt.Sprintf("%s%d@example.com", roleName, userSeq),
		Password:    "hashed",
		PhoneNumber: "0811111111",
		RoleID:      role.ID,
		Role:        *role,
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *testEnv) addEvent(t *testing.T, organizer *models.User, price decimal.Decimal) *models.Event {
	t.Helper()

	event := &models.Event{
		ID:          uuid.New(),
		Title:       "Indie Fest",
		Description: "Outdoor festival",
		Date:        time.Now().Add(72 * time.Hour),
		Time:        "16:00",
		Location:    "Bandung",
		Email:       "org@example.com",
		Phone:       "0822222222",
		TicketPrice: price,
		Status:      models.EventApproved,
		CreatedByID: organizer.ID,
	}
	require.NoError(t, e.events.Create(context.Background(), event))
	return event
}

func (e *testEnv) buyTicket(t *testing.T, buyer *models.User, event *models.Event) *models.Ticket {
	t.Helper()

	tk, err := e.ticketSvc.Create(context.Background(), ticket.CreateInput{
		EventID:  event.ID,
		Username: buyer.Username,
		Email:    buyer.Email,
		Phone:    buyer.PhoneNumber,
		UserID:   buyer.ID,
	})
	require.NoError(t, err)
	return tk
}

func (e *testEnv) submit(t *testing.T, buyer *models.User, tk *models.Ticket) (*models.Payment, *models.Ticket) {
	t.Helper()

	payment, updated, err := e.svc.Submit(context.Background(), SubmitInput{
		TicketID:      tk.ID,
		Method:        "bank_transfer",
		Screenshot:    []byte("screenshot bytes"),
		ScreenshotExt: ".jpg",
		UserID:        buyer.ID,
	})
	require.NoError(t, err)
	return payment, updated
}

func TestSubmit_MovesTicketToReviewWithDerivedAmount(t *testing.T) {
	env := newTestEnv(t)
	organizer := env.addUser(t, models.RoleOrganizer)
	buyer := env.addUser(t, models.RoleAttendee)
	event := env.addEvent(t, organizer, decimal.NewFromInt(250000))
	tk := env.buyTicket(t, buyer, event)

	payment, updated := env.submit(t, buyer, tk)

	assert.True(t, payment.Amount.Equal(event.TicketPrice), "amount must come from the event, not the client")
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Equal(t, "bank_transfer", payment.Method)
	assert.Equal(t, models.StatusPaymentInReview, updated.Status)
	assert.Equal(t, payment.ScreenshotURL, updated.PaymentScreenshotURL)
	assert.True(t, env.files.Exists(payment.ScreenshotURL))

	stored, err := env.tickets.ByID(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaymentInReview, stored.Status)
}

func TestSubmit_FreeEventZeroAmount(t *testing.T) {
	env := newTestEnv(t)
	organizer := env.addUser(t, models.RoleOrganizer)
	buyer := env.addUser(t, models.RoleAttendee)
	event := env.addEvent(t, organizer, decimal.Zero)
	tk := env.buyTicket(t, buyer, event)

	payment, _ := env.submit(t, buyer, tk)
	assert.True(t, payment.Amount.IsZero())
}

func TestSubmit_ResubmissionUpdatesRecordInPlace(t *testing.T) {
	env := newTestEnv(t)
	organizer := env.addUser(t, models.RoleOrganizer)
	buyer := env.addUser(t, models.RoleAttendee)
	event := env.addEvent(t, organizer, decimal.NewFromInt(100000))
	tk := env.buyTicket(t, buyer, event)

	first, _ := env.submit(t, buyer, tk)
	second, updated := env.submit(t, buyer, tk)

	assert.Equal(t, first.ID, second.ID, "resubmission must not create a second record")
	assert.NotEqual(t, first.ScreenshotURL, second.ScreenshotURL)
	assert.False(t, env.files.Exists(first.ScreenshotURL), "superseded screenshot should be removed")
	assert.True(t, env.files.Exists(second.ScreenshotURL))
	assert.Equal(t, models.StatusPaymentInReview, updated.Status)
	assert.Equal(t, models.PaymentPending, second.Status)
}

func TestSubmit_ResubmissionAfterRejectionResetsDecision(t *testing.T) {
	env := newTestEnv(t)
	organizer := env.addUser(t, models.RoleOrganizer)
	admin := env.addUser(t, models.RoleAdmin)
	buyer := env.addUser(t, models.RoleAttendee)
	event := env.addEvent(t, organizer, decimal.NewFromInt(100000))
	tk := env.buyTicket(t, buyer, event)

	first, _ := env.submit(t, buyer, tk)
	_, _, err := env.svc.Verify(context.Background(), first.ID, ActionReject, "blurry photo", admin.ID)
	require.NoError(t, err)

	second, updated := env.submit(t, buyer, tk)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.PaymentPending, second.Status)
	assert.Empty(t, second.AdminNote)
	assert.Nil(t, second.VerifiedAt)
	assert.Nil(t, second.VerifiedByID)
	assert.Equal(t, models.StatusPaymentInReview, updated.Status)
}

func TestSubmit_RequiresScreenshot(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.addUser(t, models.RoleAttendee)

	_, _, err := env.svc.Submit(context.Background(), SubmitInput{
		TicketID: uuid.New(),
		UserID:   buyer.ID,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestSubmit_StrangerForbidden(t *testing.T) {
	env := newTestEnv(t)
	organizer := env.addUser(t, models.RoleOrganizer)
	buyer := env.addUser(t, models.RoleAttendee)
	stranger := env.addUser(t, models.RoleAttendee)
	event := env.addEvent(t, organizer, decimal.NewFromInt(100000))
	tk := env.buyTicket(t, buyer, event)

	_, _, err := env.svc.Submit(context.Background(), SubmitInput{
		TicketID:      tk.ID,
		Screenshot:    []byte("x"),
		ScreenshotExt: ".png",
		UserID:        stranger.ID,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestSubmit_RejectsConfirmedTicket(t *testing.T) {
	env := newTestEnv(t)
	organizer := env.addUser(t, models.RoleOrganizer)
	buyer := env.addUser(t, models.RoleAttendee)
	event := env.addEvent(t, organizer, decimal.NewFromInt(100000))
	tk := env.buyTicket(t, buyer, event)

	ok, err := env.tickets.TransitionStatus(context.Background(), tk.ID, tk.Status, models.StatusConfirmed)
	require.NoError(t, err)
	require.True(t, ok)

	_, _, err = env.svc.Submit(context.Background(), SubmitInput{
		TicketID:      tk.ID,
		Screenshot:    []byte("x"),
		ScreenshotExt: ".png",
		UserID:        buyer.ID,
	})
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindInvalidState, appErr.Kind)
	assert.Equal(t, models.StatusConfirmed, appErr.TicketStatus)
}

func TestVerify_ApproveConfirmsTicket(t *testing.T) {
	env := newTestEnv(t)
	organizer := env.addUser(t, models.RoleOrganizer)
	admin := env.addUser(t, models.RoleAdmin)
	buyer := env.addUser(t, models.RoleAttendee)
	event := env.addEvent(t, organizer, decimal.NewFromInt(100000))
	tk := env.buyTicket(t, buyer, event)
	originalKey := tk.AccessKey

	submitted, _ := env.submit(t, buyer, tk)

	payment, updated, err := env.svc.Verify(context.Background(), submitted.ID, ActionApprove, "looks good", admin.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentApproved, payment.Status)
	assert.Equal(t, "looks good", payment.AdminNote)
	require.NotNil(t, payment.VerifiedAt)
	require.NotNil(t, payment.VerifiedByID)
	assert.Equal(t, admin.ID, *payment.VerifiedByID)

	assert.Equal(t, models.StatusConfirmed, updated.Status)
	assert.Equal(t, originalKey, updated.AccessKey, "approval keeps the key issued at creation")
	assert.NotEmpty(t, updated.QRCodeURL)
	assert.True(t, env.files.Exists(updated.QRCodeURL))
}

func TestVerify_ApproveBackfillsMissingAccessKey(t *testing.T) {
	env := newTestEnv(t)
	organizer := env.addUser(t, models.RoleOrganizer)
	admin := env.addUser(t, models.RoleAdmin)
	buyer := env.addUser(t, models.RoleAttendee)
	event := env.addEvent(t, organizer, decimal.NewFromInt(100000))

	// A legacy row created before key-at-creation existed.
	tk := &models.Ticket{
		UserID:      buyer.ID,
		EventID:     event.ID,
		OrganizerID: organizer.ID,
		Username:    buyer.Username,
		Email:       buyer.Email,
		Phone:       buyer.PhoneNumber,
		Status:      models.StatusPaymentInReview,
	}
	require.NoError(t, env.tickets.Create(context.Background(), tk))

	submitted := &models.Payment{
		TicketID:      tk.ID,
		UserID:        buyer.ID,
		EventID:       event.ID,
		Amount:        event.TicketPrice,
		Method:        "bank_transfer",
		ScreenshotURL: "/uploads/payments/legacy.jpg",
		Status:        models.PaymentPending,
	}
	require.NoError(t, env.payments.Create(context.Background(), submitted))

	_, updated, err := env.svc.Verify(context.Background(), submitted.ID, ActionApprove, "", admin.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusConfirmed, updated.Status)
	assert.Regexp(t, `^TK-\d+-[A-Z0-9]{13}-\d{1,4}$`, updated.AccessKey)
	assert.NotEmpty(t, updated.QRCodeURL)
}

func TestVerify_RejectResetsTicketKeepsAuditTrail(t *testing.T) {
	env := newTestEnv(t)
	organizer := env.addUser(t, models.RoleOrganizer)
	admin := env.addUser(t, models.RoleAdmin)
	buyer := env.addUser(t, models.RoleAttendee)
	event := env.addEvent(t, organizer, decimal.NewFromInt(100000))
	tk := env.buyTicket(t, buyer, event)

	submitted, _ := env.submit(t, buyer, tk)

	payment, updated, err := env.svc.Verify(context.Background(), submitted.ID, ActionReject, "amount mismatch", admin.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentRejected, payment.Status)
	assert.Equal(t, "amount mismatch", payment.AdminNote)
	assert.Equal(t, models.StatusPendingPayment, updated.Status)
	assert.Empty(t, updated.PaymentScreenshotURL, "ticket drops its screenshot reference")
	assert.Equal(t, submitted.ScreenshotURL, payment.ScreenshotURL, "payment keeps the screenshot for audit")
	assert.True(t, env.files.Exists(payment.ScreenshotURL))
}

func TestVerify_SecondDecisionRejected(t *testing.T) {
	env := newTestEnv(t)
	organizer := env.addUser(t, models.RoleOrganizer)
	admin := env.addUser(t, models.RoleAdmin)
	buyer := env.addUser(t, models.RoleAttendee)
	event := env.addEvent(t, organizer, decimal.NewFromInt(100000))
	tk := env.buyTicket(t, buyer, event)

	submitted, _ := env.submit(t, buyer, tk)

	_, _, err := env.svc.Verify(context.Background(), submitted.ID, ActionApprove, "", admin.ID)
	require.NoError(t, err)

	_, _, err = env.svc.Verify(context.Background(), submitted.ID, ActionReject, "", admin.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
	assert.Contains(t, err.Error(), models.PaymentApproved)
}

func TestVerify_InvalidAction(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, models.RoleAdmin)

	_, _, err := env.svc.Verify(context.Background(), uuid.New(), "maybe", "", admin.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestVerify_PaymentNotFound(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, models.RoleAdmin)

	_, _, err := env.svc.Verify(context.Background(), uuid.New(), ActionApprove, "", admin.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestByID_VisibilityRules(t *testing.T) {
	env := newTestEnv(t)
	organizer := env.addUser(t, models.RoleOrganizer)
	admin := env.addUser(t, models.RoleAdmin)
	buyer := env.addUser(t, models.RoleAttendee)
	stranger := env.addUser(t, models.RoleAttendee)
	event := env.addEvent(t, organizer, decimal.NewFromInt(100000))
	tk := env.buyTicket(t, buyer, event)
	submitted, _ := env.submit(t, buyer, tk)

	_, err := env.svc.ByID(context.Background(), submitted.ID, buyer.ID)
	assert.NoError(t, err)
	_, err = env.svc.ByID(context.Background(), submitted.ID, admin.ID)
	assert.NoError(t, err)
	_, err = env.svc.ByID(context.Background(), submitted.ID, stranger.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}
