package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account holding a bcrypt password hash and a permanent access token.
type User struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Email       string    `gorm:"uniqueIndex;size:254;not null" json:"email"`
	Password    string    `gorm:"not null" json:"-"`
	AccessToken string    `gorm:"uniqueIndex;size:64;not null" json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Identity is the resolved caller attached to an authenticated request.
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
}

// Identity returns the public identity of the user.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Email: u.Email}
}

// Credentials is the body returned by signup and login.
type Credentials struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	AccessToken string `json:"accessToken"`
}
