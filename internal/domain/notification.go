package domain

import "time"

type NotificationCategory string

const (
	NotificationCategoryParking     NotificationCategory = "parking"
	NotificationCategoryReservation NotificationCategory = "reservation"
	NotificationCategoryWallet      NotificationCategory = "wallet"
	NotificationCategoryViolation   NotificationCategory = "violation"
)

type Notification struct {
	ID         int32                `json:"id"`
	UserID     int32                `json:"user_id"`
	Title      string               `json:"title"`
	Message    string               `json:"message"`
	Category   NotificationCategory `json:"category"`
	IsRead     bool                 `json:"is_read"`
	Attributes map[string]string    `json:"attributes"`
	CreatedOn  time.Time            `json:"created_on"`
}
