package anki

import (
	"archive/zip"
	"bytes"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlienhard/schoolhouse/internal/entities"
)

func buildCards() []entities.Flashcard {
	return []entities.Flashcard{
		{
			CardType: entities.CardTypeBasic,
			Question: "What is the capital of France?",
			Answer:   "Paris",
			Tags:     []string{"geography", "europe"},
		},
		{
			CardType:       entities.CardTypeMultipleChoice,
			Question:       "Which planet is largest?",
			Choices:        []string{"Mars", "Jupiter", "Venus"},
			CorrectChoices: []int{1},
		},
		{
			CardType:     entities.CardTypeCloze,
			Question:     "The mitochondria is the _____ of the cell.",
			Answer:       "powerhouse",
			ClozeText:    "The mitochondria is the {{c1::powerhouse}} of the cell.",
			ClozeAnswers: []string{"powerhouse"},
		},
	}
}

func TestPackageBuilder_Build_ZipLayout(t *testing.T) {
	builder := NewPackageBuilder(t.TempDir())

	data, err := builder.Build(buildCards(), "Biology Unit 3")
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, CollectionFile)
	assert.Contains(t, names, MediaIndexFile)
}

func TestPackageBuilder_Build_CollectionRows(t *testing.T) {
	builder := NewPackageBuilder(t.TempDir())
	cards := buildCards()

	data, err := builder.Build(cards, "Biology Unit 3")
	require.NoError(t, err)

	dbPath := extractCollection(t, data)
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var noteCount, cardCount int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM notes`).Scan(&noteCount))
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM cards`).Scan(&cardCount))
	assert.Equal(t, len(cards), noteCount)
	assert.Equal(t, len(cards), cardCount)

	var ver int
	require.NoError(t, db.QueryRow(`SELECT ver FROM col`).Scan(&ver))
	assert.Equal(t, schemaVersion, ver)

	var tags, flds string
	require.NoError(t, db.QueryRow(`SELECT tags, flds FROM notes ORDER BY id LIMIT 1`).Scan(&tags, &flds))
	assert.Equal(t, " geography europe ", tags)
	assert.Equal(t, "What is the capital of France?\x1fParis", flds)

	var clozeFlds string
	require.NoError(t, db.QueryRow(`SELECT flds FROM notes WHERE mid = ?`, clozeModelID).Scan(&clozeFlds))
	assert.Contains(t, clozeFlds, "{{c1::powerhouse}}")
}

func TestPackageBuilder_Build_Deterministic(t *testing.T) {
	builder := NewPackageBuilder(t.TempDir())
	cards := buildCards()

	first, err := builder.Build(cards, "Biology Unit 3")
	require.NoError(t, err)
	second, err := builder.Build(cards, "Biology Unit 3")
	require.NoError(t, err)

	assert.Equal(t, first, second, "building the same cards twice must yield identical bytes")
}

func TestParse_RoundTrip(t *testing.T) {
	staging := t.TempDir()
	builder := NewPackageBuilder(staging)
	cards := buildCards()

	data, err := builder.Build(cards, "Biology Unit 3")
	require.NoError(t, err)

	parser := NewPackageParser(staging)
	result := parser.Parse(data, false)

	require.True(t, result.Success, result.Error)
	require.Len(t, result.Cards, len(cards))
	assert.Empty(t, result.StagingDir, "staging must be cleaned up when media is not requested")

	basic := result.Cards[0]
	assert.Equal(t, entities.CardTypeBasic, basic.CardType)
	assert.Equal(t, "What is the capital of France?", basic.Question)
	assert.Equal(t, "Paris", basic.Answer)
	assert.ElementsMatch(t, []string{"geography", "europe"}, basic.Tags)

	cloze := result.Cards[2]
	assert.Equal(t, entities.CardTypeCloze, cloze.CardType)
	assert.Equal(t, "The mitochondria is the {{c1::powerhouse}} of the cell.", cloze.ClozeText)
	assert.Equal(t, []string{"powerhouse"}, cloze.ClozeAnswers)
	assert.Equal(t, "The mitochondria is the _____ of the cell.", cloze.Question)

	deckNames := make([]string, 0, len(result.Decks))
	for _, deck := range result.Decks {
		deckNames = append(deckNames, deck.Name)
	}
	assert.Contains(t, deckNames, "Biology Unit 3")
}

func TestParse_ExtractsMedia(t *testing.T) {
	staging := t.TempDir()
	builder := NewPackageBuilder(staging)
	cards := []entities.Flashcard{
		{
			CardType: entities.CardTypeBasic,
			Question: "How is croissant pronounced?",
			Answer:   "Listen: [sound:0]",
		},
	}

	data, err := builder.Build(cards, "French Pronunciation")
	require.NoError(t, err)

	// Repack the archive with a populated media index and the payload
	// under its numeric entry name, the way Anki ships media.
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name == MediaIndexFile {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		w, err := zw.Create(f.Name)
		require.NoError(t, err)
		_, err = io.Copy(w, rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
	}
	w, err := zw.Create(MediaIndexFile)
	require.NoError(t, err)
	_, err = w.Write([]byte(`{"0":"pronunciation.mp3"}`))
	require.NoError(t, err)
	w, err = zw.Create("0")
	require.NoError(t, err)
	_, err = w.Write([]byte("mp3 bytes"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	parser := NewPackageParser(staging)
	result := parser.Parse(buf.Bytes(), true)

	require.True(t, result.Success, result.Error)
	assert.Empty(t, result.Errors)
	require.NotEmpty(t, result.StagingDir)
	defer os.RemoveAll(result.StagingDir)

	require.Len(t, result.Cards, 1)
	assert.Equal(t, "Listen: [sound:pronunciation.mp3]", result.Cards[0].Answer)

	staged, ok := result.MediaFiles["pronunciation.mp3"]
	require.True(t, ok, "media file must be listed in the result")
	assert.Equal(t, result.StagingDir, filepath.Dir(staged))

	payload, err := os.ReadFile(staged)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3 bytes"), payload)
}

func TestParse_NotAZip(t *testing.T) {
	parser := NewPackageParser(t.TempDir())

	result := parser.Parse([]byte("definitely not a zip archive"), false)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not a valid Anki package")
}

func TestParse_MissingCollection(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("unrelated.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("nothing to see"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	parser := NewPackageParser(t.TempDir())
	result := parser.Parse(buf.Bytes(), false)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, CollectionFile)
}

func TestExtractClozeAnswers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"numbered deletion", "The {{c1::mitochondria}} is the powerhouse.", []string{"mitochondria"}},
		{"bare deletion", "The {{mitochondria}} is the powerhouse.", []string{"mitochondria"}},
		{"multiple deletions", "{{c1::Paris}} is the capital of {{c2::France}}.", []string{"Paris", "France"}},
		{"hint suffix dropped", "The {{c1::mitochondria::organelle}} is the powerhouse.", []string{"mitochondria"}},
		{"no deletions", "Plain text without markers.", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractClozeAnswers(tt.input))
		})
	}
}

func TestBlankClozeText(t *testing.T) {
	got := BlankClozeText("{{c1::Paris}} is the capital of {{c2::France}}.")
	assert.Equal(t, "_____ is the capital of _____.", got)
}

func TestSubstituteMediaNames(t *testing.T) {
	cards := []entities.Flashcard{
		{Question: `Listen: [sound:3]`, Answer: `<img src="7">`},
	}
	index := map[string]string{"3": "pronunciation.mp3", "7": "diagram.png"}

	substituteMediaNames(cards, index)

	assert.Equal(t, "Listen: [sound:pronunciation.mp3]", cards[0].Question)
	assert.Equal(t, `<img src="diagram.png">`, cards[0].Answer)
}

// extractCollection unzips the collection database into a temp dir so
// the test can query it directly.
func extractCollection(t *testing.T, pkg []byte) string {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(pkg), int64(len(pkg)))
	require.NoError(t, err)

	for _, f := range zr.File {
		if f.Name != CollectionFile {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()

		var db bytes.Buffer
		_, err = db.ReadFrom(rc)
		require.NoError(t, err)

		dbPath := filepath.Join(t.TempDir(), CollectionFile)
		require.NoError(t, os.WriteFile(dbPath, db.Bytes(), 0o644))
		return dbPath
	}

	t.Fatal("package does not contain a collection database")
	return ""
}
