package exporters

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jlienhard/schoolhouse/internal/entities"
	"github.com/jlienhard/schoolhouse/internal/mnemosyne"
)

const jsonFormatVersion = "1.0"

type jsonDocument struct {
	ExportedAt    string     `json:"exported_at"`
	FormatVersion string     `json:"format_version"`
	TotalCards    int        `json:"total_cards"`
	Flashcards    []jsonCard `json:"flashcards"`
}

// jsonCard mirrors the card model with identity/timestamp fields made
// optional, so include_metadata=false can drop them cleanly.
type jsonCard struct {
	ID               uint                     `json:"id,omitempty"`
	CardType         entities.CardType        `json:"card_type"`
	Question         string                   `json:"question"`
	Answer           string                   `json:"answer"`
	Hint             string                   `json:"hint,omitempty"`
	Choices          []string                 `json:"choices,omitempty"`
	CorrectChoices   []int                    `json:"correct_choices,omitempty"`
	ClozeText        string                   `json:"cloze_text,omitempty"`
	ClozeAnswers     []string                 `json:"cloze_answers,omitempty"`
	QuestionImageURL string                   `json:"question_image_url,omitempty"`
	Tags             []string                 `json:"tags,omitempty"`
	DifficultyLevel  entities.DifficultyLevel `json:"difficulty_level"`
	CreatedAt        *time.Time               `json:"created_at,omitempty"`
	UpdatedAt        *time.Time               `json:"updated_at,omitempty"`
}

func exportJSON(cards []entities.Flashcard, includeMetadata bool) ([]byte, error) {
	doc := jsonDocument{
		ExportedAt:    time.Now().UTC().Format(time.RFC3339),
		FormatVersion: jsonFormatVersion,
		TotalCards:    len(cards),
		Flashcards:    make([]jsonCard, 0, len(cards)),
	}

	for i := range cards {
		card := &cards[i]
		jc := jsonCard{
			CardType:         card.CardType,
			Question:         card.Question,
			Answer:           card.Answer,
			Hint:             card.Hint,
			Choices:          card.Choices,
			CorrectChoices:   card.CorrectChoices,
			ClozeText:        card.ClozeText,
			ClozeAnswers:     card.ClozeAnswers,
			QuestionImageURL: card.QuestionImageURL,
			Tags:             card.Tags,
			DifficultyLevel:  card.DifficultyLevel,
		}
		if includeMetadata {
			jc.ID = card.ID
			if !card.CreatedAt.IsZero() {
				created := card.CreatedAt
				jc.CreatedAt = &created
			}
			if !card.UpdatedAt.IsZero() {
				updated := card.UpdatedAt
				jc.UpdatedAt = &updated
			}
		}
		doc.Flashcards = append(doc.Flashcards, jc)
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(raw, '\n'), nil
}

var csvHeader = []string{"ID", "Card Type", "Question", "Answer", "Hint", "Difficulty", "Tags"}

func exportCSV(cards []entities.Flashcard) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := range cards {
		card := &cards[i]
		id := ""
		if card.ID != 0 {
			id = strconv.FormatUint(uint64(card.ID), 10)
		}
		record := []string{
			id,
			string(card.CardType),
			card.Question,
			card.Answer,
			card.Hint,
			string(card.DifficultyLevel),
			strings.Join(card.Tags, ";"),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row %d: %w", i+1, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// exportQuizlet writes one question<TAB>answer line per card. Choice
// cards carry their options inline via QuestionText; embedded tabs and
// newlines are flattened to keep the TSV well-formed.
func exportQuizlet(cards []entities.Flashcard) []byte {
	var b strings.Builder
	for i := range cards {
		card := &cards[i]
		b.WriteString(flattenLine(card.QuestionText()))
		b.WriteByte('\t')
		b.WriteString(flattenLine(card.AnswerText()))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

var lineSpace = regexp.MustCompile(`\s+`)

// flattenLine collapses every whitespace run, tabs and newlines
// included, so a rendered question or answer stays on one physical
// line.
func flattenLine(text string) string {
	return strings.TrimSpace(lineSpace.ReplaceAllString(text, " "))
}

func exportMnemosyne(cards []entities.Flashcard) ([]byte, error) {
	return mnemosyne.Marshal(cards)
}

// exportSuperMemo writes one Q:/A: block per card, blocks separated by
// a blank line. Rendered text is flattened so each of Q and A occupies
// exactly one line.
func exportSuperMemo(cards []entities.Flashcard) []byte {
	var b strings.Builder
	for i := range cards {
		card := &cards[i]
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("Q: ")
		b.WriteString(flattenLine(card.QuestionText()))
		b.WriteByte('\n')
		b.WriteString("A: ")
		b.WriteString(flattenLine(card.AnswerText()))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
