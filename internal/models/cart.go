package models

import (
	"fmt"
	"time"
)

type CartStatus string

const (
	CartStatusPending   CartStatus = "pending"
	CartStatusConfirmed CartStatus = "confirmed"
	CartStatusCancelled CartStatus = "cancelled"
	CartStatusDone      CartStatus = "done"
)

var cartTransitions = map[CartStatus][]CartStatus{
	CartStatusPending:   {CartStatusConfirmed, CartStatusCancelled},
	CartStatusConfirmed: {CartStatusDone},
}

func (s CartStatus) Valid() bool {
	switch s {
	case CartStatusPending, CartStatusConfirmed, CartStatusCancelled, CartStatusDone:
		return true
	}
	return false
}

// CanTransition reports whether a line may move from s to next. Lines only
// advance pending → confirmed → done, or pending → cancelled.
func (s CartStatus) CanTransition(next CartStatus) bool {
	for _, allowed := range cartTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type TransitionError struct {
	From CartStatus
	To   CartStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cart line cannot move from %s to %s", e.From, e.To)
}

// CartLine is a user's pending selection of a flight result.
type CartLine struct {
	BookingID  string          `json:"bookingId" bson:"_id"`
	UserID     string          `json:"userId,omitempty" bson:"userId"`
	Flight     FlightResult    `json:"flight" bson:"flight"`
	Passengers PassengerCounts `json:"passengers" bson:"passengers"`
	Quantity   int             `json:"quantity" bson:"quantity"`
	Status     CartStatus      `json:"status" bson:"status"`
	// CheckoutID is the booking a confirmed line was checked out into.
	CheckoutID string          `json:"checkoutId,omitempty" bson:"checkoutId,omitempty"`
	CreatedAt  time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// Advance moves the line to next or returns a *TransitionError.
func (l *CartLine) Advance(next CartStatus, at time.Time) error {
	if !l.Status.CanTransition(next) {
		return &TransitionError{From: l.Status, To: next}
	}
	l.Status = next
	l.UpdatedAt = at
	return nil
}

func (l CartLine) Amount() float64 {
	q := l.Quantity
	if q < 1 {
		q = 1
	}
	return l.Flight.Price * float64(q)
}

// Booking is the confirmed result of a checkout.
type Booking struct {
	ID          string     `json:"id" bson:"_id"`
	UserID      string     `json:"userId,omitempty" bson:"userId"`
	Customer    string     `json:"customer,omitempty" bson:"customer,omitempty"`
	Lines       []CartLine `json:"lines" bson:"lines"`
	TotalAmount float64    `json:"totalAmount" bson:"totalAmount"`
	Currency    string     `json:"currency" bson:"currency"`
	Status      CartStatus `json:"status" bson:"status"`
	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
}
