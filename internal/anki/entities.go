// Package anki reads and writes Anki .apkg packages: zip containers
// holding a schema-11 SQLite collection plus a JSON media index.
package anki

import (
	"github.com/jlienhard/schoolhouse/internal/entities"
)

const (
	// CollectionFile is the database entry name inside a package.
	// Anki 2.1 packages may additionally ship collection.anki21 with
	// the same schema.
	CollectionFile       = "collection.anki2"
	CollectionFileAnki21 = "collection.anki21"

	// MediaIndexFile maps numeric zip entry names to original
	// media filenames.
	MediaIndexFile = "media"

	// fieldSeparator joins note fields inside the flds column.
	fieldSeparator = "\x1f"

	// schemaVersion is the collection schema this package understands
	// ("previous" Anki schema, used by both .anki2 and .anki21).
	schemaVersion = 11
)

// DeckInfo describes one deck found in a package. Deck membership is a
// batch-level concern; it is returned alongside the cards rather than
// stored on them.
type DeckInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Result is the outcome of parsing an .apkg file.
type Result struct {
	Success bool                 `json:"success"`
	Cards   []entities.Flashcard `json:"cards"`
	// MediaFiles maps original media filenames to their staged paths.
	// Populated only when media handling was requested; the caller owns
	// cleanup of StagingDir afterwards.
	MediaFiles map[string]string   `json:"media_files,omitempty"`
	Decks      map[int64]DeckInfo  `json:"decks,omitempty"`
	Errors     []string            `json:"errors,omitempty"`
	Error      string              `json:"error,omitempty"`
	StagingDir string              `json:"-"`
}

// noteModel is the slice of an Anki note type we need: enough to tell
// cloze models apart and to name fields.
type noteModel struct {
	Name string       `json:"name"`
	Type int          `json:"type"` // 0 standard, 1 cloze
	Flds []modelField `json:"flds"`
}

type modelField struct {
	Name string `json:"name"`
	Ord  int    `json:"ord"`
}

type deckJSON struct {
	Name string `json:"name"`
	Desc string `json:"desc"`
}
