package importers

import (
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"

	"github.com/jlienhard/schoolhouse/internal/entities"
)

// ParseResult is the outcome of parsing a delimited text blob.
type ParseResult struct {
	Success    bool                 `json:"success"`
	Cards      []entities.Flashcard `json:"cards"`
	Errors     []string             `json:"errors,omitempty"`
	TotalLines int                  `json:"total_lines"`
	Delimiter  string               `json:"delimiter,omitempty"`
}

// TextParser parses tab-, comma-, dash-, and pipe-delimited card lists.
type TextParser struct {
	maxImportSize int
}

// NewTextParser creates a parser that refuses batches larger than
// maxImportSize cards.
func NewTextParser(maxImportSize int) *TextParser {
	return &TextParser{maxImportSize: maxImportSize}
}

var (
	// Hashtag tokens embedded in question/answer text. The token
	// boundary is whitespace or the string edge.
	tagPattern = regexp.MustCompile(`(^|\s)#(\S+)`)

	multiSpace = regexp.MustCompile(`[ \t]{2,}`)
)

// Parse splits the input into cards using the given delimiter, or
// auto-detects one when delimiter is empty. Line endings are normalized
// before splitting, blank lines are skipped, and lines that don't yield
// at least a question and an answer are recorded as errors without
// aborting the batch.
func (p *TextParser) Parse(input, delimiter string) ParseResult {
	text := NormalizeLineEndings(input)
	text = strings.TrimSuffix(text, "\n")

	if delimiter == "" {
		delimiter = DetectDelimiter(text)
	}
	if delimiter == "" {
		return ParseResult{
			Success: false,
			Errors:  []string{"could not detect a delimiter; expected tab, comma, dash or pipe separated text"},
		}
	}

	lines := strings.Split(text, "\n")
	result := ParseResult{
		TotalLines: len(lines),
		Delimiter:  delimiter,
	}

	dataLines := 0
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			dataLines++
		}
	}
	if dataLines > p.maxImportSize {
		result.Errors = append(result.Errors,
			fmt.Sprintf("import contains %d cards, which exceeds the maximum allowed %d", dataLines, p.maxImportSize))
		return result
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields, err := splitLine(line, delimiter)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Line %d: %v", i+1, err))
			continue
		}
		if len(fields) < 2 {
			result.Errors = append(result.Errors, fmt.Sprintf("Line %d: expected question and answer separated by %q", i+1, delimiter))
			continue
		}

		card := entities.Flashcard{
			CardType:        entities.CardTypeBasic,
			DifficultyLevel: entities.DifficultyMedium,
		}
		card.Question = extractTags(fields[0], &card)
		card.Answer = extractTags(fields[1], &card)
		if len(fields) > 2 {
			card.Hint = strings.TrimSpace(fields[2])
		}

		if card.Question == "" || card.Answer == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Line %d: question and answer must not be empty", i+1))
			continue
		}

		result.Cards = append(result.Cards, card)
	}

	result.Success = len(result.Cards) > 0
	if !result.Success && len(result.Errors) == 0 {
		result.Errors = append(result.Errors, "no cards found in input")
	}
	return result
}

// splitLine breaks one line into at most three fields (question,
// answer, hint). Comma-delimited lines go through a real CSV reader so
// quoted fields may contain commas and quotes.
func splitLine(line, delimiter string) ([]string, error) {
	if delimiter != DelimiterComma {
		fields := strings.SplitN(line, delimiter, 3)
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		return fields, nil
	}

	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = -1
	record, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("malformed CSV: %v", err)
	}
	if len(record) > 3 {
		record = record[:3]
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}
	return record, nil
}

// extractTags strips #hashtag tokens from the text, records them on the
// card, and returns the cleaned visible text.
func extractTags(text string, card *entities.Flashcard) string {
	for _, m := range tagPattern.FindAllStringSubmatch(text, -1) {
		card.AddTag(m[2])
	}
	cleaned := tagPattern.ReplaceAllString(text, "$1")
	cleaned = multiSpace.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// ValidateImport checks parsed cards against the per-type invariants
// and the field-length ceiling. Each violation becomes one message
// labeled with its 1-based row.
func ValidateImport(cards []entities.Flashcard) []string {
	var messages []string
	for i := range cards {
		for _, problem := range cards[i].Validate() {
			messages = append(messages, fmt.Sprintf("Row %d: %s", i+1, problem))
		}
	}
	return messages
}
