package anki

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/jlienhard/schoolhouse/internal/entities"
)

// clozeMarker matches {{word}} and {{cN::word}} deletions, optionally
// carrying an ::hint suffix inside the braces.
var clozeMarker = regexp.MustCompile(`\{\{(?:c\d+::)?(.*?)\}\}`)

// readCollection opens the staged collection database read-only and
// maps its notes to flashcards.
func readCollection(dbPath string) (Result, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return Result{}, fmt.Errorf("failed to open collection database: %v", err)
	}
	defer db.Close()

	models, decks, err := readCol(db)
	if err != nil {
		return Result{}, err
	}

	noteDecks, err := readCardDecks(db)
	if err != nil {
		return Result{}, err
	}

	result := Result{Decks: make(map[int64]DeckInfo)}
	for did, deck := range decks {
		result.Decks[did] = DeckInfo{Name: deck.Name, Description: deck.Desc}
	}

	rows, err := db.Query(`SELECT id, mid, tags, flds FROM notes ORDER BY id`)
	if err != nil {
		return Result{}, fmt.Errorf("corrupt collection database: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			noteID int64
			mid    int64
			tags   string
			flds   string
		)
		if err := rows.Scan(&noteID, &mid, &tags, &flds); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("note skipped: %v", err))
			continue
		}

		card, err := noteToFlashcard(mid, tags, flds, models)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("note %d: %v", noteID, err))
			continue
		}

		// Deck membership stays batch-level; remembering which decks
		// actually hold notes keeps the preview list relevant.
		if did, ok := noteDecks[noteID]; ok {
			if deck, known := decks[did]; known {
				result.Decks[did] = DeckInfo{Name: deck.Name, Description: deck.Desc}
			}
		}

		result.Cards = append(result.Cards, *card)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("corrupt collection database: %v", err)
	}

	return result, nil
}

// readCol reads the single col row holding schema version and the
// models/decks JSON blobs.
func readCol(db *sql.DB) (map[int64]noteModel, map[int64]deckJSON, error) {
	var (
		ver        int
		modelsJSON string
		decksJSON  string
	)
	err := db.QueryRow(`SELECT ver, models, decks FROM col LIMIT 1`).Scan(&ver, &modelsJSON, &decksJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("corrupt collection database: %v", err)
	}
	if ver != schemaVersion {
		return nil, nil, fmt.Errorf("unrecognized collection schema version %d (expected %d)", ver, schemaVersion)
	}

	rawModels := make(map[string]noteModel)
	if err := json.Unmarshal([]byte(modelsJSON), &rawModels); err != nil {
		return nil, nil, fmt.Errorf("malformed models in collection: %v", err)
	}
	models := make(map[int64]noteModel, len(rawModels))
	for id, m := range rawModels {
		mid, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		models[mid] = m
	}

	rawDecks := make(map[string]deckJSON)
	if err := json.Unmarshal([]byte(decksJSON), &rawDecks); err != nil {
		return nil, nil, fmt.Errorf("malformed decks in collection: %v", err)
	}
	decks := make(map[int64]deckJSON, len(rawDecks))
	for id, d := range rawDecks {
		did, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		decks[did] = d
	}

	return models, decks, nil
}

// readCardDecks maps note id to the deck of its first card.
func readCardDecks(db *sql.DB) (map[int64]int64, error) {
	rows, err := db.Query(`SELECT nid, did FROM cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("corrupt collection database: %v", err)
	}
	defer rows.Close()

	noteDecks := make(map[int64]int64)
	for rows.Next() {
		var nid, did int64
		if err := rows.Scan(&nid, &did); err != nil {
			continue
		}
		if _, seen := noteDecks[nid]; !seen {
			noteDecks[nid] = did
		}
	}
	return noteDecks, rows.Err()
}

// noteToFlashcard maps one note row to the normalized card model using
// its note type. Cloze models keep the raw markers in ClozeText; any
// note type that is neither basic nor cloze falls back to the two-field
// mapping (first field question, remaining fields joined as answer).
func noteToFlashcard(mid int64, tags, flds string, models map[int64]noteModel) (*entities.Flashcard, error) {
	fields := strings.Split(flds, fieldSeparator)
	if len(fields) == 0 || strings.TrimSpace(fields[0]) == "" {
		return nil, fmt.Errorf("note has no usable fields")
	}

	card := &entities.Flashcard{
		CardType:        entities.CardTypeBasic,
		DifficultyLevel: entities.DifficultyMedium,
	}
	for _, tag := range strings.Fields(tags) {
		card.AddTag(tag)
	}

	model, known := models[mid]
	if known && isClozeModel(model) {
		text := strings.TrimSpace(fields[0])
		answers := ExtractClozeAnswers(text)
		if len(answers) == 0 {
			return nil, fmt.Errorf("cloze note has no deletions")
		}
		card.CardType = entities.CardTypeCloze
		card.ClozeText = text
		card.ClozeAnswers = answers
		card.Question = BlankClozeText(text)
		card.Answer = strings.Join(answers, ", ")
		if len(fields) > 1 {
			card.Hint = strings.TrimSpace(fields[1])
		}
		return card, nil
	}

	card.Question = strings.TrimSpace(fields[0])
	if len(fields) < 2 {
		return nil, fmt.Errorf("note has no answer field")
	}
	rest := make([]string, 0, len(fields)-1)
	for _, f := range fields[1:] {
		if strings.TrimSpace(f) != "" {
			rest = append(rest, strings.TrimSpace(f))
		}
	}
	if len(rest) == 0 {
		return nil, fmt.Errorf("note has an empty answer")
	}
	card.Answer = strings.Join(rest, "\n")
	return card, nil
}

func isClozeModel(model noteModel) bool {
	return model.Type == 1 || strings.Contains(strings.ToLower(model.Name), "cloze")
}

// ExtractClozeAnswers returns the deleted terms of a cloze text, in
// order of appearance. Hint suffixes ({{c1::term::hint}}) are dropped.
func ExtractClozeAnswers(text string) []string {
	var answers []string
	for _, m := range clozeMarker.FindAllStringSubmatch(text, -1) {
		answer := m[1]
		if idx := strings.Index(answer, "::"); idx >= 0 {
			answer = answer[:idx]
		}
		answer = strings.TrimSpace(answer)
		if answer != "" {
			answers = append(answers, answer)
		}
	}
	return answers
}

// BlankClozeText replaces every deletion marker with a blank, giving a
// plain-text question for formats without cloze support.
func BlankClozeText(text string) string {
	return clozeMarker.ReplaceAllString(text, "_____")
}
