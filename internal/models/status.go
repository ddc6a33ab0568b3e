package models

// Ticket lifecycle statuses.
const (
	StatusPendingPayment  = "pending_payment"
	StatusPaymentInReview = "payment_in_review"
	StatusConfirmed       = "confirmed"
	StatusUsed            = "used"
	StatusCancelled       = "cancelled"
	StatusExpired         = "expired"
)

// TicketStatuses lists every defined ticket status.
var TicketStatuses = []string{
	StatusPendingPayment,
	StatusPaymentInReview,
	StatusConfirmed,
	StatusUsed,
	StatusCancelled,
	StatusExpired,
}

// ticketTransitions is the lifecycle table. Expiry is not listed here: it is
// an override that can fire from any non-terminal state, handled by
// CanExpire.
var ticketTransitions = map[string][]string{
	StatusPendingPayment:  {StatusPaymentInReview},
	StatusPaymentInReview: {StatusPaymentInReview, StatusConfirmed, StatusPendingPayment},
	StatusConfirmed:       {StatusUsed, StatusCancelled},
}

// IsValidTicketStatus reports whether s is one of the defined statuses.
func IsValidTicketStatus(s string) bool {
	for _, known := range TicketStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no further transition may leave s.
func IsTerminalStatus(s string) bool {
	return s == StatusUsed || s == StatusCancelled || s == StatusExpired
}

// CanTransition reports whether the lifecycle permits moving a ticket from
// one status to another. The expiry override is intentionally excluded; use
// CanExpire for that.
func CanTransition(from, to string) bool {
	for _, allowed := range ticketTransitions[from] {
		if to == allowed {
			return true
		}
	}
	return false
}

// CanExpire reports whether the expiry override may fire from the given
// status. It never overrides used or cancelled.
func CanExpire(from string) bool {
	switch from {
	case StatusPendingPayment, StatusPaymentInReview, StatusConfirmed:
		return true
	}
	return false
}
