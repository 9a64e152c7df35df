package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SavedSearch records one POST /api/save. It is an audit log of written
// files, never consulted to answer a search.
type SavedSearch struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Filename  string    `json:"filename" gorm:"type:varchar(255);not null"`
	Location  string    `json:"location" gorm:"type:text;not null"`
	ObjectKey string    `json:"object_key,omitempty" gorm:"type:text;default:''"`
	Query     string    `json:"query,omitempty" gorm:"type:text;default:''"`
	Category  string    `json:"category,omitempty" gorm:"type:varchar(16);default:''"`
	Count     int       `json:"count" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

func (SavedSearch) TableName() string {
	return "saved_searches"
}

func (s *SavedSearch) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
