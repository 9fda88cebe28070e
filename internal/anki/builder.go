package anki

import (
	"archive/zip"
	"bytes"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jlienhard/schoolhouse/internal/entities"
)

// Fixed identifiers keep re-exports of the same card list
// byte-identical. Anki only requires ids to be unique within the
// collection, not globally.
const (
	collectionCreated = int64(1600000000)
	exportDeckID      = int64(1600000000001)
	basicModelID      = int64(1600000001001)
	clozeModelID      = int64(1600000001002)
	baseNoteID        = int64(1600000100000)
	baseCardID        = int64(1600000200000)
)

// guidNamespace seeds deterministic note GUIDs derived from card text.
var guidNamespace = uuid.MustParse("8f8b4d2e-43a1-4a70-9c05-6f2b5e9a1d37")

// PackageBuilder constructs .apkg files. Like the parser, each Build
// call stages its working database under its own unique path.
type PackageBuilder struct {
	StagingRoot string
}

func NewPackageBuilder(stagingRoot string) *PackageBuilder {
	if stagingRoot == "" {
		stagingRoot = os.TempDir()
	}
	return &PackageBuilder{StagingRoot: stagingRoot}
}

// Build creates a complete Anki package holding one note and one card
// per input flashcard, all placed in a single deck named deckName, and
// returns the zip bytes.
func (b *PackageBuilder) Build(cards []entities.Flashcard, deckName string) ([]byte, error) {
	stagingDir := filepath.Join(b.StagingRoot, "anki-export-"+uuid.NewString())
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	dbPath := filepath.Join(stagingDir, CollectionFile)
	if err := buildCollection(dbPath, cards, deckName); err != nil {
		return nil, err
	}

	dbBytes, err := os.ReadFile(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged collection: %w", err)
	}

	return buildZip(dbBytes)
}

// buildCollection writes a schema-11 collection database from scratch.
func buildCollection(dbPath string, cards []entities.Flashcard, deckName string) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("failed to create collection database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(collectionSchema); err != nil {
		return fmt.Errorf("failed to create collection schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertCol(tx, deckName); err != nil {
		return err
	}

	noteStmt, err := tx.Prepare(`INSERT INTO notes (id, guid, mid, mod, usn, tags, flds, sfld, csum, flags, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, '')`)
	if err != nil {
		return fmt.Errorf("failed to prepare note insert: %w", err)
	}
	defer noteStmt.Close()

	cardStmt, err := tx.Prepare(`INSERT INTO cards (id, nid, did, ord, mod, usn, type, queue, due, ivl, factor, reps, lapses, left, odue, odid, flags, data)
		VALUES (?, ?, ?, 0, ?, 0, 0, 0, ?, 0, 2500, 0, 0, 0, 0, 0, 0, '')`)
	if err != nil {
		return fmt.Errorf("failed to prepare card insert: %w", err)
	}
	defer cardStmt.Close()

	for i := range cards {
		card := &cards[i]
		front, back, mid := noteFields(card)

		flds := front + fieldSeparator + back
		sortField := front
		guid := uuid.NewSHA1(guidNamespace, []byte(flds)).String()

		if _, err := noteStmt.Exec(
			baseNoteID+int64(i),
			guid,
			mid,
			collectionCreated,
			0,
			noteTags(card),
			flds,
			sortField,
			fieldChecksum(sortField),
		); err != nil {
			return fmt.Errorf("failed to insert note %d: %w", i+1, err)
		}

		if _, err := cardStmt.Exec(
			baseCardID+int64(i),
			baseNoteID+int64(i),
			exportDeckID,
			collectionCreated,
			i+1,
		); err != nil {
			return fmt.Errorf("failed to insert card %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}

// noteFields picks the note model and the two field values for a card.
// Cloze cards keep their raw deletion markers so Anki renders them
// natively; everything else degrades to the front/back text views.
func noteFields(card *entities.Flashcard) (front, back string, mid int64) {
	if card.CardType == entities.CardTypeCloze && card.ClozeText != "" {
		return card.ClozeText, card.Hint, clozeModelID
	}
	return card.QuestionText(), card.AnswerText(), basicModelID
}

func noteTags(card *entities.Flashcard) string {
	if len(card.Tags) == 0 {
		return ""
	}
	// Anki stores tags space-separated with surrounding spaces.
	return " " + strings.Join(card.Tags, " ") + " "
}

// fieldChecksum is the integer value of the first 8 hex digits of the
// SHA1 of the sort field, per Anki's csum convention.
func fieldChecksum(field string) int64 {
	sum := sha1.Sum([]byte(field))
	n, _ := strconv.ParseInt(hex.EncodeToString(sum[:])[:8], 16, 64)
	return n
}

func insertCol(tx *sql.Tx, deckName string) error {
	models, err := modelsJSON()
	if err != nil {
		return err
	}
	decks, err := decksJSON(deckName)
	if err != nil {
		return err
	}
	conf, err := json.Marshal(map[string]any{
		"nextPos":       1,
		"estTimes":      true,
		"activeDecks":   []int64{exportDeckID},
		"sortType":      "noteFld",
		"timeLim":       0,
		"sortBackwards": false,
		"addToCur":      true,
		"curDeck":       exportDeckID,
		"newBury":       true,
		"newSpread":     0,
		"dueCounts":     true,
		"curModel":      strconv.FormatInt(basicModelID, 10),
		"collapseTime":  1200,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal collection conf: %w", err)
	}
	dconf, err := json.Marshal(map[string]any{
		"1": map[string]any{
			"id":       1,
			"name":     "Default",
			"replayq":  true,
			"autoplay": true,
			"timer":    0,
			"maxTaken": 60,
			"new":      map[string]any{"bury": true, "delays": []int{1, 10}, "initialFactor": 2500, "ints": []int{1, 4, 7}, "order": 1, "perDay": 20, "separate": true},
			"rev":      map[string]any{"bury": true, "ease4": 1.3, "fuzz": 0.05, "ivlFct": 1, "maxIvl": 36500, "minSpace": 1, "perDay": 100},
			"lapse":    map[string]any{"delays": []int{10}, "leechAction": 0, "leechFails": 8, "minInt": 1, "mult": 0},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal deck conf: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO col (id, crt, mod, scm, ver, dty, usn, ls, conf, models, decks, dconf, tags)
		VALUES (1, ?, ?, ?, ?, 0, 0, 0, ?, ?, ?, ?, '{}')`,
		collectionCreated,
		collectionCreated*1000,
		collectionCreated*1000,
		schemaVersion,
		string(conf),
		models,
		decks,
		string(dconf),
	)
	if err != nil {
		return fmt.Errorf("failed to insert col row: %w", err)
	}
	return nil
}

func modelsJSON() (string, error) {
	field := func(name string, ord int) map[string]any {
		return map[string]any{
			"name": name, "ord": ord, "sticky": false, "rtl": false,
			"font": "Arial", "size": 20, "media": []string{},
		}
	}

	models := map[string]any{
		strconv.FormatInt(basicModelID, 10): map[string]any{
			"id":   basicModelID,
			"name": "Basic",
			"type": 0,
			"mod":  collectionCreated,
			"usn":  0, "sortf": 0, "did": exportDeckID,
			"flds": []any{field("Front", 0), field("Back", 1)},
			"tmpls": []any{map[string]any{
				"name": "Card 1", "ord": 0,
				"qfmt": "{{Front}}", "afmt": "{{FrontSide}}\n\n<hr id=answer>\n\n{{Back}}",
				"bqfmt": "", "bafmt": "", "did": nil,
			}},
			"css":      ".card { font-family: arial; font-size: 20px; text-align: center; color: black; background-color: white; }",
			"latexPre": "\\documentclass[12pt]{article}\n\\special{papersize=3in,5in}\n\\usepackage{amssymb,amsmath}\n\\pagestyle{empty}\n\\begin{document}\n",
			"latexPost": "\\end{document}",
			"req":       []any{[]any{0, "any", []int{0}}},
			"tags":      []string{},
			"vers":      []string{},
		},
		strconv.FormatInt(clozeModelID, 10): map[string]any{
			"id":   clozeModelID,
			"name": "Cloze",
			"type": 1,
			"mod":  collectionCreated,
			"usn":  0, "sortf": 0, "did": exportDeckID,
			"flds": []any{field("Text", 0), field("Extra", 1)},
			"tmpls": []any{map[string]any{
				"name": "Cloze", "ord": 0,
				"qfmt": "{{cloze:Text}}", "afmt": "{{cloze:Text}}<br>\n{{Extra}}",
				"bqfmt": "", "bafmt": "", "did": nil,
			}},
			"css":      ".card { font-family: arial; font-size: 20px; text-align: center; color: black; background-color: white; }\n.cloze { font-weight: bold; color: blue; }",
			"latexPre": "\\documentclass[12pt]{article}\n\\special{papersize=3in,5in}\n\\usepackage{amssymb,amsmath}\n\\pagestyle{empty}\n\\begin{document}\n",
			"latexPost": "\\end{document}",
			"tags":      []string{},
			"vers":      []string{},
		},
	}

	raw, err := json.Marshal(models)
	if err != nil {
		return "", fmt.Errorf("failed to marshal models: %w", err)
	}
	return string(raw), nil
}

func decksJSON(deckName string) (string, error) {
	deck := func(id int64, name string) map[string]any {
		return map[string]any{
			"id": id, "name": name, "desc": "",
			"mod": collectionCreated, "usn": 0,
			"collapsed": false, "dyn": 0, "conf": 1, "extendNew": 10, "extendRev": 50,
			"newToday": []int{0, 0}, "revToday": []int{0, 0},
			"lrnToday": []int{0, 0}, "timeToday": []int{0, 0},
		}
	}

	decks := map[string]any{
		"1": deck(1, "Default"),
		strconv.FormatInt(exportDeckID, 10): deck(exportDeckID, deckName),
	}

	raw, err := json.Marshal(decks)
	if err != nil {
		return "", fmt.Errorf("failed to marshal decks: %w", err)
	}
	return string(raw), nil
}

// buildZip assembles the final package: the collection database plus an
// empty media index. Entry timestamps are pinned so identical input
// produces identical bytes.
func buildZip(collection []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	entries := []struct {
		name string
		data []byte
	}{
		{CollectionFile, collection},
		{MediaIndexFile, []byte("{}")},
	}

	for _, entry := range entries {
		header := &zip.FileHeader{
			Name:     entry.name,
			Method:   zip.Deflate,
			Modified: time.Unix(collectionCreated, 0).UTC(),
		}
		w, err := zw.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create zip entry %s: %w", entry.name, err)
		}
		if _, err := w.Write(entry.data); err != nil {
			return nil, fmt.Errorf("failed to write zip entry %s: %w", entry.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize package: %w", err)
	}
	return buf.Bytes(), nil
}

const collectionSchema = `
CREATE TABLE col (
    id integer PRIMARY KEY,
    crt integer NOT NULL,
    mod integer NOT NULL,
    scm integer NOT NULL,
    ver integer NOT NULL,
    dty integer NOT NULL,
    usn integer NOT NULL,
    ls integer NOT NULL,
    conf text NOT NULL,
    models text NOT NULL,
    decks text NOT NULL,
    dconf text NOT NULL,
    tags text NOT NULL
);
CREATE TABLE notes (
    id integer PRIMARY KEY,
    guid text NOT NULL,
    mid integer NOT NULL,
    mod integer NOT NULL,
    usn integer NOT NULL,
    tags text NOT NULL,
    flds text NOT NULL,
    sfld integer NOT NULL,
    csum integer NOT NULL,
    flags integer NOT NULL,
    data text NOT NULL
);
CREATE TABLE cards (
    id integer PRIMARY KEY,
    nid integer NOT NULL,
    did integer NOT NULL,
    ord integer NOT NULL,
    mod integer NOT NULL,
    usn integer NOT NULL,
    type integer NOT NULL,
    queue integer NOT NULL,
    due integer NOT NULL,
    ivl integer NOT NULL,
    factor integer NOT NULL,
    reps integer NOT NULL,
    lapses integer NOT NULL,
    left integer NOT NULL,
    odue integer NOT NULL,
    odid integer NOT NULL,
    flags integer NOT NULL,
    data text NOT NULL
);
CREATE TABLE revlog (
    id integer PRIMARY KEY,
    cid integer NOT NULL,
    usn integer NOT NULL,
    ease integer NOT NULL,
    ivl integer NOT NULL,
    lastIvl integer NOT NULL,
    factor integer NOT NULL,
    time integer NOT NULL,
    type integer NOT NULL
);
CREATE TABLE graves (
    usn integer NOT NULL,
    oid integer NOT NULL,
    type integer NOT NULL
);
CREATE INDEX ix_notes_usn ON notes (usn);
CREATE INDEX ix_cards_usn ON cards (usn);
CREATE INDEX ix_revlog_usn ON revlog (usn);
CREATE INDEX ix_cards_nid ON cards (nid);
CREATE INDEX ix_cards_sched ON cards (did, queue, due);
CREATE INDEX ix_revlog_cid ON revlog (cid);
CREATE INDEX ix_notes_csum ON notes (csum);
`
