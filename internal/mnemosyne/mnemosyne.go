// Package mnemosyne reads and writes the Mnemosyne XML card format.
// Parser and writer share one schema so exported files re-import
// unchanged.
package mnemosyne

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/jlienhard/schoolhouse/internal/entities"
)

// Document is the XML shape of a Mnemosyne export: a root element
// holding top-level <card> children. The root name is not validated on
// parse; some exporters use <mnemosyne>, others wrap cards differently.
type Document struct {
	XMLName xml.Name `xml:"mnemosyne"`
	Cards   []Card   `xml:"card"`
}

// Card mirrors one <card> element. Q and A are pointers so a missing
// child can be told apart from an empty one.
type Card struct {
	Q          *string  `xml:"Q"`
	A          *string  `xml:"A"`
	Categories []string `xml:"cat"`
}

// Result is the outcome of parsing a Mnemosyne XML file.
type Result struct {
	Success bool                 `json:"success"`
	Cards   []entities.Flashcard `json:"cards"`
	Errors  []string             `json:"errors,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// looseDocument accepts any root element when parsing, since we only
// care about the top-level <card> children.
type looseDocument struct {
	XMLName xml.Name
	Cards   []Card `xml:"card"`
}

// Parse walks the top-level <card> elements of a Mnemosyne XML file.
// Unparseable XML is a hard failure; a card missing <Q> or <A> is
// skipped with a per-card error.
func Parse(input []byte) Result {
	var doc looseDocument
	if err := xml.Unmarshal(input, &doc); err != nil {
		return Result{Error: fmt.Sprintf("malformed XML: %v", err)}
	}

	result := Result{}
	for i, c := range doc.Cards {
		if c.Q == nil || c.A == nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Card %d: missing <Q> or <A> element", i+1))
			continue
		}

		card := entities.Flashcard{
			CardType:        entities.CardTypeBasic,
			Question:        strings.TrimSpace(*c.Q),
			Answer:          strings.TrimSpace(*c.A),
			DifficultyLevel: entities.DifficultyMedium,
		}
		for _, cat := range c.Categories {
			card.AddTag(strings.TrimSpace(cat))
		}

		if card.Question == "" || card.Answer == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Card %d: empty question or answer", i+1))
			continue
		}
		result.Cards = append(result.Cards, card)
	}

	result.Success = len(result.Cards) > 0
	if !result.Success && result.Error == "" && len(result.Errors) == 0 {
		result.Error = "no cards found in XML"
	}
	return result
}

// Marshal renders cards as a Mnemosyne XML document the parser above
// can read back.
func Marshal(cards []entities.Flashcard) ([]byte, error) {
	doc := Document{}
	for i := range cards {
		card := &cards[i]
		q := card.QuestionText()
		a := card.AnswerText()
		doc.Cards = append(doc.Cards, Card{
			Q:          &q,
			A:          &a,
			Categories: card.Tags,
		})
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal XML: %w", err)
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}
