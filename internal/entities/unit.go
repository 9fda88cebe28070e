package entities

import (
	"time"

	"gorm.io/gorm"
)

// Unit is a block of study within a subject. Flashcards hang off topics,
// topics off units.
type Unit struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"index;size:256" json:"name"`
	Subject     string         `gorm:"index;size:256" json:"subject"`
	Description string         `gorm:"size:1024" json:"description,omitempty"`
	Topics      []Topic        `gorm:"foreignKey:UnitID" json:"topics,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Unit) TableName() string {
	return "units"
}

type Topic struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UnitID     uint           `gorm:"index" json:"unit_id"`
	Name       string         `gorm:"index;size:256" json:"name"`
	Flashcards []Flashcard    `gorm:"foreignKey:TopicID" json:"flashcards,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Topic) TableName() string {
	return "topics"
}
