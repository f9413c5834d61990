package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
	BookingRefunded  BookingStatus = "refunded"
)

// Booking is a client engagement with a provider. CreditAwarded is the
// idempotency guard for the booking-completed trigger: once set, replaying
// the completion event mutates nothing.
type Booking struct {
	ID            string        `json:"id"`
	ProviderID    string        `json:"provider_id"`
	ClientID      string        `json:"client_id"`
	Status        BookingStatus `json:"status"`
	IsPaid        bool          `json:"is_paid"`
	IsByo         bool          `json:"is_byo"`
	CreditAwarded bool          `json:"credit_awarded"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	RefundedAt    *time.Time    `json:"refunded_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}
