package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jlienhard/schoolhouse/internal/exporters"
	"github.com/jlienhard/schoolhouse/internal/services"
)

// ExportController serves topic exports as file downloads.
type ExportController struct {
	exportService *services.ExportService
}

func NewExportController(exportService *services.ExportService) *ExportController {
	return &ExportController{exportService: exportService}
}

// Download exports a topic's cards in the requested format and streams
// the payload with its MIME type and filename. Option problems are
// returned as a list so the UI can show all of them at once.
func (c *ExportController) Download(ctx *gin.Context) {
	topicID, ok := topicIDParam(ctx, ctx.Param("id"))
	if !ok {
		return
	}

	format := exporters.Format(ctx.Query("format"))

	// Deck name validation happens inside the engine, after the topic
	// name has been substituted for a missing deck_name.
	opts, problems := exporters.ParseOptions(queryOptions(ctx))
	if len(problems) > 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": problems})
		return
	}

	result, err := c.exportService.ExportTopic(topicID, format, opts)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, importErrorResponse{Error: err.Error()})
		return
	}
	if !result.Success {
		ctx.JSON(http.StatusBadRequest, importErrorResponse{Error: result.Error})
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	ctx.Data(http.StatusOK, result.MIMEType, result.Content)
}

// queryOptions lifts export options out of the query string into the
// loosely typed shape ParseOptions validates.
func queryOptions(ctx *gin.Context) map[string]any {
	raw := make(map[string]any)
	if v, present := ctx.GetQuery("deck_name"); present {
		raw["deck_name"] = v
	}
	if v, present := ctx.GetQuery("include_metadata"); present {
		switch v {
		case "true", "1":
			raw["include_metadata"] = true
		case "false", "0":
			raw["include_metadata"] = false
		default:
			raw["include_metadata"] = v
		}
	}
	return raw
}
