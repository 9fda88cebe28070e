package entities

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type CardType string

const (
	CardTypeBasic          CardType = "basic"
	CardTypeMultipleChoice CardType = "multiple_choice"
	CardTypeTrueFalse      CardType = "true_false"
	CardTypeCloze          CardType = "cloze"
	CardTypeTypedAnswer    CardType = "typed_answer"
	CardTypeImageOcclusion CardType = "image_occlusion"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// MaxFieldLength is the ceiling on question/answer text, matching the
// TEXT column limit the web app enforces.
const MaxFieldLength = 65535

// Flashcard is the normalized card model shared by all parsers and
// exporters. Parsers emit zero-ID values; identity and timestamps are
// assigned by the persistence layer on save.
type Flashcard struct {
	ID               uint            `gorm:"primaryKey" json:"id,omitempty"`
	TopicID          uint            `gorm:"index" json:"topic_id,omitempty"`
	CardType         CardType        `gorm:"size:30;default:basic" json:"card_type"`
	Question         string          `gorm:"type:text" json:"question"`
	Answer           string          `gorm:"type:text" json:"answer"`
	Hint             string          `gorm:"type:text" json:"hint,omitempty"`
	Choices          []string        `gorm:"serializer:json" json:"choices,omitempty"`
	CorrectChoices   []int           `gorm:"serializer:json" json:"correct_choices,omitempty"`
	ClozeText        string          `gorm:"type:text" json:"cloze_text,omitempty"`
	ClozeAnswers     []string        `gorm:"serializer:json" json:"cloze_answers,omitempty"`
	QuestionImageURL string          `gorm:"size:2048" json:"question_image_url,omitempty"`
	OcclusionData    string          `gorm:"type:text" json:"occlusion_data,omitempty"`
	Tags             []string        `gorm:"serializer:json" json:"tags,omitempty"`
	DifficultyLevel  DifficultyLevel `gorm:"size:10;default:medium" json:"difficulty_level"`
	CreatedAt        time.Time       `json:"created_at,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at,omitempty"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Flashcard) TableName() string {
	return "flashcards"
}

// KnownCardTypes lists every supported card type.
var KnownCardTypes = []CardType{
	CardTypeBasic,
	CardTypeMultipleChoice,
	CardTypeTrueFalse,
	CardTypeCloze,
	CardTypeTypedAnswer,
	CardTypeImageOcclusion,
}

// ChoiceLetter returns the letter label for a zero-based choice index
// (0 -> "A", 1 -> "B", ...).
func ChoiceLetter(index int) string {
	if index < 0 {
		return "?"
	}
	if index < 26 {
		return string(rune('A' + index))
	}
	// Past Z: AA, AB, ... Decks that large are rejected elsewhere, but
	// keep the labeling total.
	return ChoiceLetter(index/26-1) + ChoiceLetter(index%26)
}

// QuestionText renders a single-string view of the question for export
// formats that cannot carry structured fields.
func (f *Flashcard) QuestionText() string {
	switch f.CardType {
	case CardTypeMultipleChoice:
		if len(f.Choices) == 0 {
			return f.Question
		}
		var b strings.Builder
		b.WriteString(f.Question)
		b.WriteString("\n\nOptions:")
		for i, choice := range f.Choices {
			b.WriteString(fmt.Sprintf(" %s) %s", ChoiceLetter(i), choice))
		}
		return b.String()
	case CardTypeTrueFalse:
		return f.Question + "\n\n(True or False)"
	case CardTypeCloze:
		if f.Question != "" {
			return f.Question
		}
		return f.ClozeText
	default:
		return f.Question
	}
}

// AnswerText renders a single-string view of the answer.
func (f *Flashcard) AnswerText() string {
	switch f.CardType {
	case CardTypeMultipleChoice:
		if len(f.CorrectChoices) == 0 {
			return f.Answer
		}
		idx := f.CorrectChoices[0]
		if idx < 0 || idx >= len(f.Choices) {
			return f.Answer
		}
		return fmt.Sprintf("%s) %s", ChoiceLetter(idx), f.Choices[idx])
	case CardTypeTrueFalse:
		if len(f.CorrectChoices) == 0 {
			return f.Answer
		}
		if f.CorrectChoices[0] == 0 {
			return "True"
		}
		return "False"
	default:
		return f.Answer
	}
}

// HasTag reports whether the card carries the given tag. Comparison is
// case-sensitive, matching how tags are extracted on import.
func (f *Flashcard) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag appends a tag unless already present, preserving set semantics.
func (f *Flashcard) AddTag(tag string) {
	if tag == "" || f.HasTag(tag) {
		return
	}
	f.Tags = append(f.Tags, tag)
}

// Validate checks the per-type required fields and length ceilings.
// It returns one human-readable message per violation; callers prefix
// row labels as needed.
func (f *Flashcard) Validate() []string {
	var problems []string

	if strings.TrimSpace(f.Question) == "" && f.CardType != CardTypeCloze {
		problems = append(problems, "question is required")
	}
	if strings.TrimSpace(f.Answer) == "" && f.CardType != CardTypeCloze {
		problems = append(problems, "answer is required")
	}
	if len(f.Question) > MaxFieldLength {
		problems = append(problems, fmt.Sprintf("question exceeds maximum length of %d characters", MaxFieldLength))
	}
	if len(f.Answer) > MaxFieldLength {
		problems = append(problems, fmt.Sprintf("answer exceeds maximum length of %d characters", MaxFieldLength))
	}

	switch f.CardType {
	case CardTypeMultipleChoice, CardTypeTrueFalse:
		if len(f.Choices) < 2 {
			problems = append(problems, "at least two choices are required")
		}
		if len(f.CorrectChoices) == 0 {
			problems = append(problems, "at least one correct choice is required")
		}
		for _, idx := range f.CorrectChoices {
			if idx < 0 || idx >= len(f.Choices) {
				problems = append(problems, fmt.Sprintf("correct choice index %d is out of range", idx))
			}
		}
	case CardTypeCloze:
		if strings.TrimSpace(f.ClozeText) == "" {
			problems = append(problems, "cloze text is required")
		}
		if len(f.ClozeAnswers) == 0 {
			problems = append(problems, "cloze text contains no deletions")
		}
	case CardTypeImageOcclusion:
		if f.QuestionImageURL == "" {
			problems = append(problems, "question image is required")
		}
	}

	return problems
}

// IsExportable reports whether the card satisfies its per-type
// invariants and may be handed to an exporter.
func (f *Flashcard) IsExportable() bool {
	return len(f.Validate()) == 0
}
