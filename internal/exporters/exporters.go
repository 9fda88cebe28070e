// Package exporters serializes normalized flashcards into the six
// supported interchange formats. All formats derive from the same card
// list; no exporter mutates its input.
package exporters

import (
	"fmt"

	"github.com/jlienhard/schoolhouse/internal/anki"
	"github.com/jlienhard/schoolhouse/internal/entities"
	"github.com/jlienhard/schoolhouse/internal/utils"
)

type Format string

const (
	FormatJSON      Format = "json"
	FormatCSV       Format = "csv"
	FormatQuizlet   Format = "quizlet"
	FormatMnemosyne Format = "mnemosyne"
	FormatSuperMemo Format = "supermemo"
	FormatAnki      Format = "anki"
)

// MIMETypes maps each format key to the content type its payload is
// served with.
var MIMETypes = map[Format]string{
	FormatJSON:      "application/json",
	FormatCSV:       "text/csv",
	FormatQuizlet:   "text/tab-separated-values",
	FormatMnemosyne: "application/xml",
	FormatSuperMemo: "text/plain",
	FormatAnki:      "application/zip",
}

// ExportResult is the outcome of one export call: either a payload with
// its filename and MIME type, or an error message. Error holds the
// first problem; Errors carries the full list when option validation
// reports more than one.
type ExportResult struct {
	Success  bool     `json:"success"`
	Content  []byte   `json:"-"`
	Filename string   `json:"filename,omitempty"`
	MIMEType string   `json:"mime_type,omitempty"`
	Error    string   `json:"error,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// Engine runs exports. It is stateless between calls; the staging root
// is only used by the Anki builder for its per-call working directory.
type Engine struct {
	maxExportSize int
	ankiBuilder   *anki.PackageBuilder
}

// NewEngine creates an engine refusing batches over maxExportSize.
func NewEngine(maxExportSize int, stagingRoot string) *Engine {
	return &Engine{
		maxExportSize: maxExportSize,
		ankiBuilder:   anki.NewPackageBuilder(stagingRoot),
	}
}

func failure(format string, args ...any) ExportResult {
	return ExportResult{Error: fmt.Sprintf(format, args...)}
}

// Export serializes cards into the requested format. Preconditions are
// checked in order: non-empty input, known format, size limit, then
// format-specific options.
func (e *Engine) Export(cards []entities.Flashcard, format Format, opts Options) ExportResult {
	if len(cards) == 0 {
		return ExportResult{Error: "No flashcards provided for export"}
	}
	if _, known := MIMETypes[format]; !known {
		return ExportResult{Error: "Invalid export format specified"}
	}
	if len(cards) > e.maxExportSize {
		return failure("export contains %d cards, which exceeds the maximum allowed %d", len(cards), e.maxExportSize)
	}
	if problems := ValidateExportOptions(opts, format); len(problems) > 0 {
		return ExportResult{Error: problems[0], Errors: problems}
	}

	var (
		content []byte
		err     error
	)
	switch format {
	case FormatJSON:
		content, err = exportJSON(cards, opts.IncludeMetadata)
	case FormatCSV:
		content, err = exportCSV(cards)
	case FormatQuizlet:
		content = exportQuizlet(cards)
	case FormatMnemosyne:
		content, err = exportMnemosyne(cards)
	case FormatSuperMemo:
		content = exportSuperMemo(cards)
	case FormatAnki:
		content, err = e.ankiBuilder.Build(cards, opts.DeckName)
	}
	if err != nil {
		return failure("export failed: %v", err)
	}

	return ExportResult{
		Success:  true,
		Content:  content,
		Filename: exportFilename(format, opts.DeckName),
		MIMEType: MIMETypes[format],
	}
}

func exportFilename(format Format, deckName string) string {
	base := "flashcards"
	if deckName != "" {
		base = utils.SanitizeFilename(deckName)
	}
	switch format {
	case FormatJSON:
		return base + ".json"
	case FormatCSV:
		return base + ".csv"
	case FormatQuizlet:
		return base + ".tsv"
	case FormatMnemosyne:
		return base + ".xml"
	case FormatSuperMemo:
		return base + ".txt"
	case FormatAnki:
		return base + ".apkg"
	}
	return base
}
