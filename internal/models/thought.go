// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxMessageLength caps a thought message, counted in runes.
const MaxMessageLength = 1000

// Thought is an anonymous short message that collects hearts.
type Thought struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Message   string    `gorm:"not null" json:"message"`
	Hearts    int       `gorm:"not null;index" json:"hearts"`
	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
}

// BeforeCreate assigns a UUID when the caller left ID empty.
func (t *Thought) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// ThoughtPatch carries the fields of a partial update. Nil fields are left untouched.
type ThoughtPatch struct {
	Message *string
	Hearts  *int
}

// Empty reports whether the patch changes nothing.
func (p ThoughtPatch) Empty() bool {
	return p.Message == nil && p.Hearts == nil
}

// Columns returns the column assignments for the supplied fields.
func (p ThoughtPatch) Columns() map[string]any {
	cols := make(map[string]any, 2)
	if p.Message != nil {
		cols["message"] = *p.Message
	}
	if p.Hearts != nil {
		cols["hearts"] = *p.Hearts
	}
	return cols
}

// ThoughtFilter narrows a thought listing. A nil MinHearts lists everything.
type ThoughtFilter struct {
	MinHearts *int
	Limit     int
	Offset    int
}
