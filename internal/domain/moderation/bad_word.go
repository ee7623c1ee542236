package moderation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	BadWordSexual  = "sexual"
	BadWordViolent = "violent"
	BadWordThreat  = "threat"
	BadWordWeapons = "weapons"
	BadWordHate    = "hate"
	BadWordDrugs   = "drugs"
)

type BadWord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Word      string    `gorm:"column:word;not null;uniqueIndex:idx_bad_word_unique" json:"word"`
	Category  string    `gorm:"column:category;not null;uniqueIndex:idx_bad_word_unique" json:"category"`
	Locale    string    `gorm:"column:locale;not null;default:'es';uniqueIndex:idx_bad_word_unique" json:"locale"`
	Active    bool      `gorm:"column:active;not null;default:true;index" json:"active"`
	Origin    string    `gorm:"column:origin;not null;default:'manual'" json:"origin"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (BadWord) TableName() string { return "bad_word" }

func (b *BadWord) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
