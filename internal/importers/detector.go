package importers

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a recognized flashcard interchange format.
type Format string

const (
	FormatQuizletText Format = "quizlet_text"
	FormatCSV         Format = "csv"
	FormatDashText    Format = "dash_text"
	FormatPipeText    Format = "pipe_text"
	FormatAnki        Format = "anki"
	FormatMnemosyne   Format = "mnemosyne"
)

// Delimiters tried during sniffing, in order of preference.
const (
	DelimiterTab   = "\t"
	DelimiterComma = ","
	DelimiterDash  = " - "
	DelimiterPipe  = "|"
)

// zipSignature is the local-file-header magic every .apkg starts with.
var zipSignature = []byte{'P', 'K', 0x03, 0x04}

// DetectFormat attributes raw input to a known format. The file
// extension is authoritative when recognized; otherwise the content is
// sniffed (zip signature, XML prolog, delimiter scan). Input that can't
// be attributed to any format yields an error.
func DetectFormat(filename string, content []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".apkg":
		return FormatAnki, nil
	case ".xml", ".mem":
		return FormatMnemosyne, nil
	case ".csv":
		return FormatCSV, nil
	case ".tsv":
		return FormatQuizletText, nil
	}

	if bytes.HasPrefix(content, zipSignature) {
		return FormatAnki, nil
	}

	trimmed := strings.TrimSpace(string(content))
	if strings.HasPrefix(trimmed, "<?xml") || strings.HasPrefix(trimmed, "<mnemosyne") || strings.HasPrefix(trimmed, "<card") {
		return FormatMnemosyne, nil
	}

	if delim := DetectDelimiter(trimmed); delim != "" {
		return formatForDelimiter(delim), nil
	}

	return "", fmt.Errorf("unable to determine flashcard format for %q", filename)
}

// DetectDelimiter scans the first non-empty line and returns the first
// preferred delimiter that splits it into at least two fields. Returns
// "" when nothing matches.
func DetectDelimiter(text string) string {
	line := firstNonEmptyLine(NormalizeLineEndings(text))
	if line == "" {
		return ""
	}

	for _, delim := range []string{DelimiterTab, DelimiterComma, DelimiterDash, DelimiterPipe} {
		if strings.Contains(line, delim) {
			return delim
		}
	}
	return ""
}

func formatForDelimiter(delim string) Format {
	switch delim {
	case DelimiterComma:
		return FormatCSV
	case DelimiterDash:
		return FormatDashText
	case DelimiterPipe:
		return FormatPipeText
	default:
		return FormatQuizletText
	}
}

// NormalizeLineEndings converts \r\n and bare \r to \n so parsers can
// split on \n regardless of the platform that produced the file.
func NormalizeLineEndings(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}
