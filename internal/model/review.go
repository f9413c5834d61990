package model

import "time"

// ReviewStatus is the moderation state of a review.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Review is a client review of a completed booking. Only approved, visible
// reviews with rating >= 4 count toward the positive review tally.
type Review struct {
	ID         string       `json:"id"`
	BookingID  string       `json:"booking_id"`
	ProviderID string       `json:"provider_id"`
	ClientID   string       `json:"client_id"`
	Rating     int          `json:"rating"`
	Visible    bool         `json:"visible"`
	Status     ReviewStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
}
