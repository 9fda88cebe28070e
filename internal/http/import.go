package http

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jlienhard/schoolhouse/internal/dedupe"
	"github.com/jlienhard/schoolhouse/internal/entities"
	"github.com/jlienhard/schoolhouse/internal/services"
)

// ImportController exposes the import pipeline: parse preview,
// duplicate check, and the final confirmed import. Nothing is persisted
// until the confirm endpoint runs.
type ImportController struct {
	importService  *services.ImportService
	maxUploadBytes int64
}

func NewImportController(importService *services.ImportService, maxUploadBytes int64) *ImportController {
	return &ImportController{
		importService:  importService,
		maxUploadBytes: maxUploadBytes,
	}
}

type importErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// readUpload pulls the uploaded file out of the multipart form and
// enforces the size cap.
func (c *ImportController) readUpload(ctx *gin.Context) (string, []byte, bool) {
	file, header, err := ctx.Request.FormFile("cards_file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, importErrorResponse{Error: "Flashcard file not provided"})
		return "", nil, false
	}
	defer file.Close()

	if header.Size > c.maxUploadBytes {
		ctx.JSON(http.StatusBadRequest, importErrorResponse{
			Error: fmt.Sprintf("File too large (max %d MB)", c.maxUploadBytes/(1024*1024)),
		})
		return "", nil, false
	}

	content, err := io.ReadAll(io.LimitReader(file, c.maxUploadBytes+1))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, importErrorResponse{Error: fmt.Sprintf("Failed to read file: %v", err)})
		return "", nil, false
	}

	return header.Filename, content, true
}

// Preview parses an uploaded file and returns the parsed cards together
// with the detected format, delimiter, line counts and every parse or
// validation error, so the UI can show the batch before persisting.
// With extract_media=true, Anki package media is staged under the
// configured staging root and listed in media_files.
func (c *ImportController) Preview(ctx *gin.Context) {
	filename, content, ok := c.readUpload(ctx)
	if !ok {
		return
	}

	extractMedia := ctx.PostForm("extract_media") == "true"
	preview := c.importService.Parse(filename, content, ctx.PostForm("delimiter"), extractMedia)
	if !preview.Success {
		ctx.JSON(http.StatusBadRequest, preview)
		return
	}
	ctx.JSON(http.StatusOK, preview)
}

// Duplicates parses an uploaded file and scores it against the cards
// already stored under the given topic.
func (c *ImportController) Duplicates(ctx *gin.Context) {
	topicID, ok := topicIDParam(ctx, ctx.PostForm("topic_id"))
	if !ok {
		return
	}

	filename, content, uploadOK := c.readUpload(ctx)
	if !uploadOK {
		return
	}

	preview := c.importService.Parse(filename, content, ctx.PostForm("delimiter"), false)
	if !preview.Success {
		ctx.JSON(http.StatusBadRequest, preview)
		return
	}

	report, err := c.importService.CheckDuplicates(topicID, preview.Cards)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, importErrorResponse{Error: err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":    true,
		"duplicates": report,
	})
}

type confirmImportRequest struct {
	TopicID     uint                 `json:"topic_id" binding:"required"`
	Cards       []entities.Flashcard `json:"cards" binding:"required"`
	Resolutions []dedupe.Resolution  `json:"resolutions"`
}

// Confirm persists a previously previewed batch under a topic, applying
// the user's duplicate resolutions.
func (c *ImportController) Confirm(ctx *gin.Context) {
	var req confirmImportRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, importErrorResponse{Error: fmt.Sprintf("Invalid request: %v", err)})
		return
	}

	result, err := c.importService.Import(req.TopicID, req.Cards, req.Resolutions)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, importErrorResponse{Error: err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

func topicIDParam(ctx *gin.Context, raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		ctx.JSON(http.StatusBadRequest, importErrorResponse{Error: "A valid topic_id is required"})
		return 0, false
	}
	return uint(id), true
}
