// Package flashcards provides database operations for units, topics
// and their flashcards.
//
// It implements the CardReader and CardWriter interfaces defined in
// internal/services/interfaces.go.
package flashcards

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/jlienhard/schoolhouse/internal/entities"
	"github.com/jlienhard/schoolhouse/internal/services"
)

// Repository handles unit, topic and flashcard database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new flashcards repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetTopic retrieves a topic by ID.
func (r *Repository) GetTopic(topicID uint) (*entities.Topic, error) {
	var topic entities.Topic
	if err := r.db.First(&topic, topicID).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

// GetUnit retrieves a unit with its topics.
func (r *Repository) GetUnit(unitID uint) (*entities.Unit, error) {
	var unit entities.Unit
	if err := r.db.Preload("Topics").First(&unit, unitID).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

// GetTopicCards retrieves all flashcards under a topic, oldest first.
func (r *Repository) GetTopicCards(topicID uint) ([]entities.Flashcard, error) {
	var cards []entities.Flashcard
	err := r.db.Where("topic_id = ?", topicID).Order("id ASC").Find(&cards).Error
	return cards, err
}

// GetUnitCards retrieves all flashcards across a unit's topics.
func (r *Repository) GetUnitCards(unitID uint) ([]entities.Flashcard, error) {
	var cards []entities.Flashcard
	err := r.db.
		Joins("JOIN topics ON topics.id = flashcards.topic_id").
		Where("topics.unit_id = ?", unitID).
		Order("flashcards.id ASC").
		Find(&cards).Error
	return cards, err
}

// CreateCards inserts a batch of flashcards under a topic. Returns the
// number of cards actually created.
func (r *Repository) CreateCards(topicID uint, cards []entities.Flashcard) (int, error) {
	if len(cards) == 0 {
		return 0, nil
	}

	batch := make([]entities.Flashcard, len(cards))
	copy(batch, cards)
	for i := range batch {
		batch[i].ID = 0
		batch[i].TopicID = topicID
	}

	if err := r.db.Create(&batch).Error; err != nil {
		return 0, fmt.Errorf("failed to create flashcards: %w", err)
	}
	return len(batch), nil
}

// UpdateCards rewrites the content of existing flashcards, matched by
// ID. Cards without an ID are skipped.
func (r *Repository) UpdateCards(cards []entities.Flashcard) (int, error) {
	updated := 0
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for i := range cards {
			if cards[i].ID == 0 {
				continue
			}
			// Select forces the structured columns through even when
			// zero-valued, so a type change clears the old type's fields.
			res := tx.Model(&entities.Flashcard{}).
				Where("id = ?", cards[i].ID).
				Select("card_type", "question", "answer", "hint",
					"choices", "correct_choices", "cloze_text", "cloze_answers",
					"question_image_url", "occlusion_data", "tags",
					"difficulty_level").
				Updates(cards[i])
			if res.Error != nil {
				return fmt.Errorf("failed to update flashcard %d: %w", cards[i].ID, res.Error)
			}
			updated += int(res.RowsAffected)
		}
		return nil
	})
	return updated, err
}

// CreateTopic creates a topic under a unit.
func (r *Repository) CreateTopic(unitID uint, name string) (*entities.Topic, error) {
	topic := entities.Topic{UnitID: unitID, Name: name}
	if err := r.db.Create(&topic).Error; err != nil {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}
	return &topic, nil
}

// CreateUnit creates a unit.
func (r *Repository) CreateUnit(name, subject string) (*entities.Unit, error) {
	unit := entities.Unit{Name: name, Subject: subject}
	if err := r.db.Create(&unit).Error; err != nil {
		return nil, fmt.Errorf("failed to create unit: %w", err)
	}
	return &unit, nil
}

// Compile-time interface checks
var (
	_ services.CardReader = (*Repository)(nil)
	_ services.CardWriter = (*Repository)(nil)
)
