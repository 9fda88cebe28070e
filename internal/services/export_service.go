package services

import (
	"fmt"

	"github.com/jlienhard/schoolhouse/internal/entities"
	"github.com/jlienhard/schoolhouse/internal/exporters"
)

// ExportService loads stored cards and hands them to the export engine.
type ExportService struct {
	engine *exporters.Engine
	reader CardReader
}

func NewExportService(engine *exporters.Engine, reader CardReader) *ExportService {
	return &ExportService{engine: engine, reader: reader}
}

// Export serializes an in-memory card list.
func (s *ExportService) Export(cards []entities.Flashcard, format exporters.Format, opts exporters.Options) exporters.ExportResult {
	return s.engine.Export(cards, format, opts)
}

// ExportTopic loads a topic's cards and exports them. When no deck name
// is given, the topic name stands in so Anki packages and download
// filenames stay recognizable.
func (s *ExportService) ExportTopic(topicID uint, format exporters.Format, opts exporters.Options) (exporters.ExportResult, error) {
	topic, err := s.reader.GetTopic(topicID)
	if err != nil {
		return exporters.ExportResult{}, fmt.Errorf("failed to load topic: %w", err)
	}

	cards, err := s.reader.GetTopicCards(topicID)
	if err != nil {
		return exporters.ExportResult{}, fmt.Errorf("failed to load topic cards: %w", err)
	}

	if opts.DeckName == "" {
		opts.DeckName = topic.Name
	}

	return s.engine.Export(cards, format, opts), nil
}
