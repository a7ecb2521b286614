package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Entry represents a person entering the raffle.
// An entry is unique on its (first name, last name, email) combination.
type Entry struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	FirstName string    `gorm:"size:100;not null;uniqueIndex:idx_raffle_entries_name_email" json:"firstName"`
	LastName  string    `gorm:"size:100;not null;uniqueIndex:idx_raffle_entries_name_email" json:"lastName"`
	Email     string    `gorm:"size:255;not null;uniqueIndex:idx_raffle_entries_name_email" json:"email"`
	Phone     string    `gorm:"size:20;not null" json:"phone"`
	EntryTime time.Time `gorm:"not null;index" json:"entryTime"`
	HasWon    bool      `gorm:"not null;default:false" json:"hasWon"`
}

// TableName keeps the table name used by the raffle schema.
func (Entry) TableName() string { return "raffle_entries" }

// BeforeCreate assigns an id and entry time when they are unset.
func (e *Entry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.EntryTime.IsZero() {
		e.EntryTime = time.Now().UTC()
	}
	return nil
}

// Prize is a physical prize that can be handed to one winner.
type Prize struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description"`
	IsAvailable bool      `gorm:"not null" json:"isAvailable"`
	CreatedAt   time.Time `gorm:"not null;index" json:"createdAt"`
}

// BeforeCreate assigns an id when it is unset.
func (p *Prize) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Winner links a drawn entry to an optional prize and its claim outcome.
// ClaimedAt is only set together with PrizeID, and never on a no-show.
type Winner struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	EntryID    string     `gorm:"size:36;not null;index" json:"entryId"`
	PrizeID    *string    `gorm:"size:36;index" json:"prizeId"`
	DrawnAt    time.Time  `gorm:"not null;index" json:"drawnAt"`
	ClaimedAt  *time.Time `gorm:"check:chk_winners_claim,claimed_at IS NULL OR (prize_id IS NOT NULL AND NOT is_no_show)" json:"claimedAt"`
	IsNoShow   bool       `gorm:"not null;default:false" json:"isNoShow"`
	NotifiedAt *time.Time `json:"notifiedAt"`
	Entry      *Entry     `gorm:"foreignKey:EntryID" json:"entry"`
	Prize      *Prize     `gorm:"foreignKey:PrizeID" json:"prize"`
}

// BeforeCreate assigns an id and draw time when they are unset.
func (w *Winner) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.DrawnAt.IsZero() {
		w.DrawnAt = time.Now().UTC()
	}
	return nil
}

// Claimed reports whether a prize has been handed over to this winner.
func (w *Winner) Claimed() bool {
	return w.ClaimedAt != nil
}

// Admin is an operator allowed to draw winners and manage records.
type Admin struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `gorm:"not null" json:"createdAt"`
}

// BeforeCreate assigns an id when it is unset.
func (a *Admin) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// EntryStatus is the draw status of an entry as shown to admins.
type EntryStatus string

const (
	EntryStatusEligible EntryStatus = "eligible"
	EntryStatusWinner   EntryStatus = "winner"
)

// EntryWithStatus decorates an entry with its current draw status.
type EntryWithStatus struct {
	Entry
	Status EntryStatus `json:"status"`
}
