package models

import (
	"time"
)

// Operator is a dashboard account. Passwords are stored as bcrypt hashes;
// TOTPSecret is empty unless the operator enabled a second factor.
type Operator struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null;size:100" json:"username"`
	PasswordHash string    `gorm:"not null;size:100" json:"-"`
	TOTPSecret   string    `gorm:"size:100" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
