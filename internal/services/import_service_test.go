package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlienhard/schoolhouse/internal/dedupe"
	"github.com/jlienhard/schoolhouse/internal/entities"
	"github.com/jlienhard/schoolhouse/internal/exporters"
	"github.com/jlienhard/schoolhouse/internal/importers"
)

// fakeStore implements CardReader and CardWriter in memory.
type fakeStore struct {
	topic     entities.Topic
	cards     []entities.Flashcard
	readErr   error
	created   []entities.Flashcard
	updated   []entities.Flashcard
	createErr error
}

func (f *fakeStore) GetTopicCards(topicID uint) ([]entities.Flashcard, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.cards, nil
}

func (f *fakeStore) GetTopic(topicID uint) (*entities.Topic, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	topic := f.topic
	return &topic, nil
}

func (f *fakeStore) CreateCards(topicID uint, cards []entities.Flashcard) (int, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.created = append(f.created, cards...)
	return len(cards), nil
}

func (f *fakeStore) UpdateCards(cards []entities.Flashcard) (int, error) {
	f.updated = append(f.updated, cards...)
	return len(cards), nil
}

func newTestImportService(t *testing.T, store *fakeStore) *ImportService {
	return NewImportService(500, t.TempDir(), dedupe.DefaultThreshold, store, store)
}

func TestImportService_Parse_DelimitedText(t *testing.T) {
	service := newTestImportService(t, &fakeStore{})

	preview := service.Parse("cards.txt", []byte("France\tParis\nSpain\tMadrid"), "", false)

	require.True(t, preview.Success, preview.Error)
	assert.Equal(t, importers.FormatQuizletText, preview.Format)
	assert.Len(t, preview.Cards, 2)
	assert.Equal(t, "\t", preview.Delimiter)
	assert.Empty(t, preview.ValidationErrors)
}

func TestImportService_Parse_Mnemosyne(t *testing.T) {
	service := newTestImportService(t, &fakeStore{})
	input := []byte(`<?xml version="1.0"?><mnemosyne><card><Q>q</Q><A>a</A></card></mnemosyne>`)

	preview := service.Parse("export.xml", input, "", false)

	require.True(t, preview.Success, preview.Error)
	assert.Equal(t, importers.FormatMnemosyne, preview.Format)
	assert.Len(t, preview.Cards, 1)
}

func TestImportService_Parse_UnknownFormat(t *testing.T) {
	service := newTestImportService(t, &fakeStore{})

	preview := service.Parse("mystery.bin", []byte("no structure at all"), "", false)

	assert.False(t, preview.Success)
	assert.NotEmpty(t, preview.Error)
}

func TestImportService_CheckDuplicates(t *testing.T) {
	store := &fakeStore{
		cards: []entities.Flashcard{
			{ID: 5, CardType: entities.CardTypeBasic, Question: "What is the capital of France?", Answer: "Paris"},
		},
	}
	service := newTestImportService(t, store)

	batch := []entities.Flashcard{
		{CardType: entities.CardTypeBasic, Question: "what is the capital of france?", Answer: "Paris"},
		{CardType: entities.CardTypeBasic, Question: "Name the largest planet.", Answer: "Jupiter"},
	}

	report, err := service.CheckDuplicates(1, batch)
	require.NoError(t, err)

	assert.Equal(t, 1, report.DuplicateCount)
	assert.Equal(t, 1, report.UniqueCount)
	require.Len(t, report.Duplicates, 1)
	assert.Equal(t, uint(5), report.Duplicates[0].ExistingCardID)
}

func TestImportService_CheckDuplicates_ReadError(t *testing.T) {
	store := &fakeStore{readErr: errors.New("database locked")}
	service := newTestImportService(t, store)

	_, err := service.CheckDuplicates(1, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database locked")
}

func TestImportService_Import(t *testing.T) {
	store := &fakeStore{}
	service := newTestImportService(t, store)

	cards := []entities.Flashcard{
		{CardType: entities.CardTypeBasic, Question: "q1", Answer: "a1"},
		{CardType: entities.CardTypeBasic, Question: "q2", Answer: "a2"},
		{CardType: entities.CardTypeBasic, Question: "q3", Answer: "a3"},
		{CardType: entities.CardTypeBasic, Question: "", Answer: ""}, // fails validation
	}
	resolutions := []dedupe.Resolution{
		{ImportIndex: 0, ExistingCardID: 10, Action: dedupe.ActionSkip},
		{ImportIndex: 1, ExistingCardID: 11, Action: dedupe.ActionUpdate},
	}

	result, err := service.Import(1, cards, resolutions)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Failed)

	require.Len(t, store.created, 1)
	assert.Equal(t, "q3", store.created[0].Question)
	require.Len(t, store.updated, 1)
	assert.Equal(t, uint(11), store.updated[0].ID)
}

func TestImportService_Import_ResolutionsFollowOriginalIndices(t *testing.T) {
	store := &fakeStore{}
	service := newTestImportService(t, store)

	// The invalid card sits before the resolved duplicate, so dropping
	// it must not shift the resolution onto a different card.
	cards := []entities.Flashcard{
		{CardType: entities.CardTypeMultipleChoice, Question: "q1", Answer: ""}, // fails validation
		{CardType: entities.CardTypeBasic, Question: "q2", Answer: "a2"},
		{CardType: entities.CardTypeBasic, Question: "q3", Answer: "a3"},
	}
	resolutions := []dedupe.Resolution{
		{ImportIndex: 1, ExistingCardID: 10, Action: dedupe.ActionSkip},
		{ImportIndex: 2, ExistingCardID: 11, Action: dedupe.ActionUpdate},
	}

	result, err := service.Import(1, cards, resolutions)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Failed)

	assert.Empty(t, store.created)
	require.Len(t, store.updated, 1)
	assert.Equal(t, uint(11), store.updated[0].ID)
	assert.Equal(t, "q3", store.updated[0].Question)
}

func TestImportService_Import_ResolutionOnInvalidCardDropped(t *testing.T) {
	store := &fakeStore{}
	service := newTestImportService(t, store)

	cards := []entities.Flashcard{
		{CardType: entities.CardTypeBasic, Question: "", Answer: ""}, // fails validation
		{CardType: entities.CardTypeBasic, Question: "q2", Answer: "a2"},
	}
	resolutions := []dedupe.Resolution{
		{ImportIndex: 0, ExistingCardID: 10, Action: dedupe.ActionUpdate},
	}

	result, err := service.Import(1, cards, resolutions)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Updated)
	assert.Empty(t, store.updated)
	require.Len(t, store.created, 1)
	assert.Equal(t, "q2", store.created[0].Question)
}

func TestImportService_Import_CreateError(t *testing.T) {
	store := &fakeStore{createErr: errors.New("disk full")}
	service := newTestImportService(t, store)

	cards := []entities.Flashcard{{CardType: entities.CardTypeBasic, Question: "q", Answer: "a"}}

	_, err := service.Import(1, cards, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestExportService_ExportTopic_DefaultsDeckName(t *testing.T) {
	store := &fakeStore{
		topic: entities.Topic{Name: "Biology Unit 3"},
		cards: []entities.Flashcard{
			{ID: 1, CardType: entities.CardTypeBasic, Question: "q", Answer: "a"},
		},
	}
	engine := exporters.NewEngine(1000, t.TempDir())
	service := NewExportService(engine, store)

	result, err := service.ExportTopic(1, exporters.FormatAnki, exporters.DefaultOptions())
	require.NoError(t, err)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "Biology Unit 3.apkg", result.Filename)
}

func TestExportService_ExportTopic_ExplicitDeckName(t *testing.T) {
	store := &fakeStore{
		topic: entities.Topic{Name: "Biology Unit 3"},
		cards: []entities.Flashcard{
			{ID: 1, CardType: entities.CardTypeBasic, Question: "q", Answer: "a"},
		},
	}
	engine := exporters.NewEngine(1000, t.TempDir())
	service := NewExportService(engine, store)

	opts := exporters.Options{DeckName: "Custom Deck", IncludeMetadata: true}
	result, err := service.ExportTopic(1, exporters.FormatCSV, opts)
	require.NoError(t, err)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "Custom Deck.csv", result.Filename)
}

func TestExportService_ExportTopic_ReadError(t *testing.T) {
	store := &fakeStore{readErr: errors.New("no such topic")}
	engine := exporters.NewEngine(1000, t.TempDir())
	service := NewExportService(engine, store)

	_, err := service.ExportTopic(99, exporters.FormatJSON, exporters.DefaultOptions())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such topic")
}
