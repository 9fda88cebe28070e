package services

import (
	"fmt"

	"github.com/jlienhard/schoolhouse/internal/anki"
	"github.com/jlienhard/schoolhouse/internal/dedupe"
	"github.com/jlienhard/schoolhouse/internal/entities"
	"github.com/jlienhard/schoolhouse/internal/importers"
	"github.com/jlienhard/schoolhouse/internal/mnemosyne"
)

// ImportPreview is the unified view of a parse across all source
// formats, shown to the user before anything is persisted.
type ImportPreview struct {
	Success          bool                    `json:"success"`
	Format           importers.Format        `json:"format"`
	Cards            []entities.Flashcard    `json:"cards"`
	Errors           []string                `json:"errors,omitempty"`
	Error            string                  `json:"error,omitempty"`
	TotalLines       int                     `json:"total_lines,omitempty"`
	Delimiter        string                  `json:"delimiter,omitempty"`
	Decks            map[int64]anki.DeckInfo `json:"decks,omitempty"`
	MediaFiles       map[string]string       `json:"media_files,omitempty"`
	StagingDir       string                  `json:"-"`
	ValidationErrors []string                `json:"validation_errors,omitempty"`
}

// ImportService orchestrates format detection, parsing, duplicate
// detection and the final persistence of an import batch.
type ImportService struct {
	textParser *importers.TextParser
	ankiParser *anki.PackageParser
	threshold  float64
	reader     CardReader
	writer     CardWriter
}

func NewImportService(maxImportSize int, stagingDir string, threshold float64, reader CardReader, writer CardWriter) *ImportService {
	return &ImportService{
		textParser: importers.NewTextParser(maxImportSize),
		ankiParser: anki.NewPackageParser(stagingDir),
		threshold:  threshold,
		reader:     reader,
		writer:     writer,
	}
}

// Parse detects the input format and runs the matching parser. The
// delimiter override only applies to delimited text input; extractMedia
// only applies to Anki packages, where it stages the referenced media
// files and leaves StagingDir for the caller (stale directories are
// swept by the staging janitor).
func (s *ImportService) Parse(filename string, content []byte, delimiter string, extractMedia bool) ImportPreview {
	format, err := importers.DetectFormat(filename, content)
	if err != nil {
		return ImportPreview{Error: err.Error()}
	}

	var preview ImportPreview
	switch format {
	case importers.FormatAnki:
		result := s.ankiParser.Parse(content, extractMedia)
		preview = ImportPreview{
			Success:    result.Success,
			Cards:      result.Cards,
			Errors:     result.Errors,
			Error:      result.Error,
			Decks:      result.Decks,
			MediaFiles: result.MediaFiles,
			StagingDir: result.StagingDir,
		}
	case importers.FormatMnemosyne:
		result := mnemosyne.Parse(content)
		preview = ImportPreview{
			Success: result.Success,
			Cards:   result.Cards,
			Errors:  result.Errors,
			Error:   result.Error,
		}
	default:
		result := s.textParser.Parse(string(content), delimiter)
		preview = ImportPreview{
			Success:    result.Success,
			Cards:      result.Cards,
			Errors:     result.Errors,
			TotalLines: result.TotalLines,
			Delimiter:  result.Delimiter,
		}
	}

	preview.Format = format
	if preview.Success {
		preview.ValidationErrors = importers.ValidateImport(preview.Cards)
	}
	return preview
}

// CheckDuplicates compares a parsed batch against the cards already
// stored under the topic.
func (s *ImportService) CheckDuplicates(topicID uint, cards []entities.Flashcard) (dedupe.Report, error) {
	existing, err := s.reader.GetTopicCards(topicID)
	if err != nil {
		return dedupe.Report{}, fmt.Errorf("failed to load existing cards: %w", err)
	}
	return dedupe.Detect(cards, existing, s.threshold), nil
}

// Import persists a batch under a topic, applying the caller-selected
// duplicate resolutions. Cards failing validation are counted as
// failures and dropped rather than aborting the batch.
func (s *ImportService) Import(topicID uint, cards []entities.Flashcard, resolutions []dedupe.Resolution) (ImportResult, error) {
	// Resolution indices refer to positions in the original batch, so
	// remap them before validation filtering shifts later cards down.
	valid := make([]entities.Flashcard, 0, len(cards))
	validIndex := make(map[int]int, len(cards))
	failed := 0
	for i := range cards {
		if cards[i].IsExportable() {
			validIndex[i] = len(valid)
			valid = append(valid, cards[i])
		} else {
			failed++
		}
	}

	remapped := make([]dedupe.Resolution, 0, len(resolutions))
	for _, r := range resolutions {
		if idx, ok := validIndex[r.ImportIndex]; ok {
			r.ImportIndex = idx
			remapped = append(remapped, r)
		}
	}

	plan := dedupe.PlanMerge(valid, remapped)

	result := ImportResult{Skipped: plan.Skipped, Failed: failed}

	if len(plan.Create) > 0 {
		created, err := s.writer.CreateCards(topicID, plan.Create)
		result.Created = created
		if err != nil {
			return result, fmt.Errorf("failed to create cards: %w", err)
		}
	}
	if len(plan.Update) > 0 {
		updated, err := s.writer.UpdateCards(plan.Update)
		result.Updated = updated
		if err != nil {
			return result, fmt.Errorf("failed to update cards: %w", err)
		}
	}

	return result, nil
}
