package services

import "github.com/jlienhard/schoolhouse/internal/entities"

// CardReader provides read-only access to stored flashcards.
// The duplicate detector compares import batches against these.
type CardReader interface {
	GetTopicCards(topicID uint) ([]entities.Flashcard, error)
	GetTopic(topicID uint) (*entities.Topic, error)
}

// CardWriter persists flashcards under a topic.
type CardWriter interface {
	CreateCards(topicID uint, cards []entities.Flashcard) (int, error)
	UpdateCards(cards []entities.Flashcard) (int, error)
}

// ImportResult contains the outcome of a confirmed import.
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}
