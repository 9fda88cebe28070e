package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jlienhard/schoolhouse/internal/dedupe"
	"github.com/jlienhard/schoolhouse/internal/database/flashcards"
	"github.com/jlienhard/schoolhouse/internal/entities"
	"github.com/jlienhard/schoolhouse/internal/exporters"
	"github.com/jlienhard/schoolhouse/internal/services"
)

type testEnv struct {
	router *gin.Engine
	repo   *flashcards.Repository
}

func setupTestEnv(t *testing.T) (*testEnv, func()) {
	gin.SetMode(gin.TestMode)

	dbPath := "./test_http_" + t.Name() + ".db"
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Unit{}, &entities.Topic{}, &entities.Flashcard{})
	require.NoError(t, err)

	repo := flashcards.NewRepository(db)
	importService := services.NewImportService(500, t.TempDir(), dedupe.DefaultThreshold, repo, repo)
	exportService := services.NewExportService(exporters.NewEngine(1000, t.TempDir()), repo)

	router := gin.New()
	importController := NewImportController(importService, 10*1024*1024)
	exportController := NewExportController(exportService)
	router.POST("/api/import/preview", importController.Preview)
	router.POST("/api/import/duplicates", importController.Duplicates)
	router.POST("/api/import/confirm", importController.Confirm)
	router.GET("/api/topics/:id/export", exportController.Download)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return &testEnv{router: router, repo: repo}, cleanup
}

func uploadRequest(t *testing.T, url, filename, content string, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("cards_file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)

	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func formatUint(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func seedTopicWithCards(t *testing.T, repo *flashcards.Repository, cards []entities.Flashcard) *entities.Topic {
	t.Helper()

	unit, err := repo.CreateUnit("Unit 3", "Biology")
	require.NoError(t, err)
	topic, err := repo.CreateTopic(unit.ID, "Cell Structure")
	require.NoError(t, err)

	if len(cards) > 0 {
		_, err = repo.CreateCards(topic.ID, cards)
		require.NoError(t, err)
	}
	return topic
}

func TestImportController_Preview(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	req := uploadRequest(t, "/api/import/preview", "cards.txt", "France\tParis\nSpain\tMadrid", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var preview services.ImportPreview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &preview))
	assert.True(t, preview.Success)
	assert.Len(t, preview.Cards, 2)
	assert.Equal(t, "\t", preview.Delimiter)
}

func TestImportController_Preview_MissingFile(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPost, "/api/import/preview", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Flashcard file not provided")
}

func TestImportController_Preview_UnparseableContent(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	req := uploadRequest(t, "/api/import/preview", "mystery.bin", "no structure here", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportController_Duplicates(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	topic := seedTopicWithCards(t, env.repo, []entities.Flashcard{
		{CardType: entities.CardTypeBasic, Question: "What is the capital of France?", Answer: "Paris"},
	})

	req := uploadRequest(t, "/api/import/duplicates", "cards.txt",
		"What is the capital of France?\tParis\nName the largest planet.\tJupiter",
		map[string]string{"topic_id": formatUint(topic.ID)})
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response struct {
		Success    bool          `json:"success"`
		Duplicates dedupe.Report `json:"duplicates"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, 1, response.Duplicates.DuplicateCount)
	assert.Equal(t, 1, response.Duplicates.UniqueCount)
}

func TestImportController_Duplicates_MissingTopicID(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	req := uploadRequest(t, "/api/import/duplicates", "cards.txt", "q\ta", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "topic_id")
}

func TestImportController_Confirm(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	topic := seedTopicWithCards(t, env.repo, nil)

	payload := map[string]any{
		"topic_id": topic.ID,
		"cards": []entities.Flashcard{
			{CardType: entities.CardTypeBasic, Question: "q1", Answer: "a1"},
			{CardType: entities.CardTypeBasic, Question: "q2", Answer: "a2"},
		},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/import/confirm", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response struct {
		Success bool                  `json:"success"`
		Result  services.ImportResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, 2, response.Result.Created)

	cards, err := env.repo.GetTopicCards(topic.ID)
	require.NoError(t, err)
	assert.Len(t, cards, 2)
}

func TestImportController_Confirm_InvalidBody(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPost, "/api/import/confirm", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportController_Download(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	topic := seedTopicWithCards(t, env.repo, []entities.Flashcard{
		{CardType: entities.CardTypeBasic, Question: "q", Answer: "a"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/topics/"+formatUint(topic.ID)+"/export?format=csv", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Cell Structure.csv")
	assert.Contains(t, w.Body.String(), "Question")
}

func TestExportController_Download_AnkiUsesTopicName(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	topic := seedTopicWithCards(t, env.repo, []entities.Flashcard{
		{CardType: entities.CardTypeBasic, Question: "q", Answer: "a"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/topics/"+formatUint(topic.ID)+"/export?format=anki", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Cell Structure.apkg")
}

func TestExportController_Download_InvalidFormat(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	topic := seedTopicWithCards(t, env.repo, []entities.Flashcard{
		{CardType: entities.CardTypeBasic, Question: "q", Answer: "a"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/topics/"+formatUint(topic.ID)+"/export?format=docx", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid export format")
}

func TestExportController_Download_EmptyTopic(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	topic := seedTopicWithCards(t, env.repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/topics/"+formatUint(topic.ID)+"/export?format=json", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No flashcards provided for export")
}
