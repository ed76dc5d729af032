package models

// Booking statuses.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
	BookingStatusRefunded  = "refunded"
)

// Earning statuses.
const (
	EarningStatusPendingClearance = "pending_clearance"
	EarningStatusAvailable        = "available"
	EarningStatusPaidOut          = "paid_out"
	EarningStatusFrozen           = "frozen"
)

// Payout request statuses.
const (
	PayoutStatusPending    = "pending"
	PayoutStatusApproved   = "approved"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusRejected   = "rejected"
	PayoutStatusFailed     = "failed"
)

// User roles.
const (
	RoleStudent  = "student"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)
