package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tixgate/tixgate/internal/helpers"
	"github.com/tixgate/tixgate/internal/middleware"
	"github.com/tixgate/tixgate/internal/models"
	"github.com/tixgate/tixgate/internal/store"
)

type EventHandler struct {
	events store.EventStore
	users  store.UserStore
	log    *zap.Logger
}

func NewEventHandler(events store.EventStore, users store.UserStore, log *zap.Logger) *EventHandler {
	return &EventHandler{events: events, users: users, log: log}
}

type EventRequest struct {
	Title        string `json:"title" binding:"required,min=3,max=200"`
	Description  string `json:"description" binding:"required,min=10"`
	Date         string `json:"date" binding:"required"`
	Time         string `json:"time" binding:"required"`
	Location     string `json:"location" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone" binding:"required"`
	TicketPrice  string `json:"ticket_price" binding:"required"`
	TotalTickets int    `json:"total_tickets"`
}

type EventResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Location     string `json:"location"`
	TicketPrice  string `json:"ticket_price"`
	TotalTickets int    `json:"total_tickets"`
	Status       string `json:"status"`
	CreatedBy    string `json:"created_by"`
}

func eventResponse(e *models.Event) EventResponse {
	return EventResponse{
		ID:           e.ID.String(),
		Title:        e.Title,
		Description:  e.Description,
		Date:         e.Date.Format(time.RFC3339),
		Time:         e.Time,
		Location:     e.Location,
		TicketPrice:  e.TicketPrice.String(),
		TotalTickets: e.TotalTickets,
		Status:       e.Status,
		CreatedBy:    e.CreatedByID.String(),
	}
}

// CreateEvent submits a new event for moderation. Events start pending and
// cannot accept tickets until an admin approves them.
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid date. Use RFC3339, e.g. 2026-09-21T19:00:00Z.")
		return
	}

	price, err := decimal.NewFromString(req.TicketPrice)
	if err != nil || price.IsNegative() {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid ticket price.")
		return
	}
	if req.TotalTickets < 0 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Total tickets cannot be negative.")
		return
	}

	event := models.Event{
		Title:        req.Title,
		Description:  req.Description,
		Date:         date,
		Time:         req.Time,
		Location:     req.Location,
		Email:        req.Email,
		Phone:        req.Phone,
		TicketPrice:  price,
		TotalTickets: req.TotalTickets,
		Status:       models.EventPending,
		CreatedByID:  userID,
	}
	if err := h.events.Create(c.Request.Context(), &event); err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create event.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Event submitted for approval.",
		"event":   eventResponse(&event),
	})
}

func (h *EventHandler) ListEvents(c *gin.Context) {
	status := models.EventApproved
	if c.Query("all") == "true" && c.GetString(middleware.ContextRole) == models.RoleAdmin {
		status = ""
	}

	events, err := h.events.List(c.Request.Context(), status)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error fetching events.")
		return
	}

	out := make([]EventResponse, 0, len(events))
	for i := range events {
		out = append(out, eventResponse(&events[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(out), "events": out})
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event ID.")
		return
	}

	event, err := h.events.ByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
		return
	}
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving event.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "event": eventResponse(event)})
}

// ApproveEvent flips a pending event to approved and promotes its creator
// to organizer, which grants ticket-status rights over the event's tickets.
func (h *EventHandler) ApproveEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event ID.")
		return
	}

	event, err := h.events.ByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
		return
	}
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving event.")
		return
	}

	if event.Status == models.EventApproved {
		helpers.RespondWithError(c, http.StatusBadRequest, "Event is already approved.")
		return
	}

	event.Status = models.EventApproved
	if err := h.events.Save(c.Request.Context(), event); err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to approve event.")
		return
	}

	if creator, uerr := h.users.ByID(c.Request.Context(), event.CreatedByID); uerr == nil && creator.Role.Name == models.RoleAttendee {
		if role, rerr := h.users.RoleByName(c.Request.Context(), models.RoleOrganizer); rerr == nil {
			creator.RoleID = role.ID
			creator.Role = *role
			if serr := h.users.Save(c.Request.Context(), creator); serr != nil {
				h.log.Warn("failed to promote event creator to organizer",
					zap.String("user_id", creator.ID.String()), zap.Error(serr))
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Event approved.",
		"event":   eventResponse(event),
	})
}
