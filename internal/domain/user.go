package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID            int32           `json:"id"`
	Email         string          `json:"email"`
	PhoneNumber   string          `json:"phone_number"`
	PasswordHash  string          `json:"-"`
	Name          string          `json:"name"`
	FCMToken      string          `json:"-"`
	Roles         []string        `json:"roles"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
	CreatedOn     time.Time       `json:"created_on"`
	UpdatedOn     time.Time       `json:"updated_on"`
}

const (
	RoleDriver  = "driver"
	RoleOfficer = "officer"
	RoleAdmin   = "admin"
)

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type Vehicle struct {
	ID          int32     `json:"id"`
	UserID      int32     `json:"user_id"`
	PlateNumber string    `json:"plate_number"`
	IsActive    bool      `json:"is_active"`
	CreatedOn   time.Time `json:"created_on"`
}
