package booking

import (
	"database/sql"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentHeld     PaymentStatus = "held"
	PaymentReleased PaymentStatus = "released"
	PaymentRefunded PaymentStatus = "refunded"
)

type Booking struct {
	ID              int           `db:"id" json:"id"`
	Code            string        `db:"code" json:"code"`
	CustomerID      int           `db:"customer_id" json:"customer_id"`
	CosplayerID     int           `db:"cosplayer_id" json:"cosplayer_id"`
	Date            time.Time     `db:"date" json:"date"`
	StartTime       time.Time     `db:"start_time" json:"start_time"`
	EndTime         time.Time     `db:"end_time" json:"end_time"`
	DurationMinutes int           `db:"duration_minutes" json:"duration_minutes"`
	TotalPrice      int64         `db:"total_price" json:"total_price"`
	Status          Status        `db:"status" json:"status"`
	PaymentStatus   PaymentStatus `db:"payment_status" json:"payment_status"`
	Location        string        `db:"location" json:"location"`
	Notes           string        `db:"notes" json:"notes"`
	CancelReason    sql.NullString `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

type BookingWithDetails struct {
	Booking
	CustomerName  string `db:"customer_name" json:"customer_name"`
	CosplayerName string `db:"cosplayer_name" json:"cosplayer_name"`
}

type CreateBookingRequest struct {
	CosplayerID int    `json:"cosplayer_id" binding:"required"`
	Date        string `json:"date" binding:"required"`       // 2006-01-02
	StartTime   string `json:"start_time" binding:"required"` // 15:04
	EndTime     string `json:"end_time" binding:"required"`   // 15:04
	Location    string `json:"location"`
	Notes       string `json:"notes"`
}

type UpdateBookingRequest struct {
	Date      *string `json:"date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Location  *string `json:"location"`
	Notes     *string `json:"notes"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"required"`
}
