package anki

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jlienhard/schoolhouse/internal/entities"
)

// PackageParser extracts .apkg files into a per-call staging directory
// and reads the embedded collection database. Each Parse call uses its
// own staging path, so concurrent parses never collide.
type PackageParser struct {
	StagingRoot string
}

// NewPackageParser creates a parser staging extracted files under
// stagingRoot. An empty root falls back to the system temp directory.
func NewPackageParser(stagingRoot string) *PackageParser {
	if stagingRoot == "" {
		stagingRoot = os.TempDir()
	}
	return &PackageParser{StagingRoot: stagingRoot}
}

// Parse opens the package bytes as a zip, stages the collection
// database, and reads notes, cards, decks and models out of it. With
// handleMedia set, referenced media files are extracted under their
// original names and Result.StagingDir is left for the caller to clean
// up; otherwise all staged files are removed before returning.
//
// Failures never panic across this boundary; they come back as
// Result{Success: false, Error: ...}.
func (p *PackageParser) Parse(data []byte, handleMedia bool) Result {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{Error: fmt.Sprintf("not a valid Anki package: %v", err)}
	}

	stagingDir := filepath.Join(p.StagingRoot, "anki-import-"+uuid.NewString())
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return Result{Error: fmt.Sprintf("failed to create staging directory: %v", err)}
	}
	keepStaging := false
	defer func() {
		if !keepStaging {
			os.RemoveAll(stagingDir)
		}
	}()

	collectionEntry := findCollectionEntry(zipReader)
	if collectionEntry == nil {
		return Result{Error: fmt.Sprintf("package does not contain %s", CollectionFile)}
	}

	dbPath := filepath.Join(stagingDir, CollectionFile)
	if err := extractEntry(collectionEntry, dbPath); err != nil {
		return Result{Error: fmt.Sprintf("failed to extract collection database: %v", err)}
	}

	mediaIndex, err := readMediaIndex(zipReader)
	if err != nil {
		return Result{Error: err.Error()}
	}

	result, err := readCollection(dbPath)
	if err != nil {
		return Result{Error: err.Error()}
	}

	if handleMedia && len(mediaIndex) > 0 {
		result.MediaFiles = make(map[string]string)
		for numeric, original := range mediaIndex {
			entry := findEntry(zipReader, numeric)
			if entry == nil {
				result.Errors = append(result.Errors, fmt.Sprintf("media file %q (%s) missing from package", original, numeric))
				continue
			}
			destPath := filepath.Join(stagingDir, filepath.Base(original))
			if err := extractEntry(entry, destPath); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("failed to extract media file %q: %v", original, err))
				continue
			}
			result.MediaFiles[original] = destPath
		}
		substituteMediaNames(result.Cards, mediaIndex)
		result.StagingDir = stagingDir
		keepStaging = true
	}

	result.Success = len(result.Cards) > 0
	if !result.Success && result.Error == "" {
		result.Error = "no cards found in package"
		if keepStaging {
			keepStaging = false
			result.StagingDir = ""
		}
	}
	return result
}

func findCollectionEntry(zipReader *zip.Reader) *zip.File {
	// Prefer the 2.1 database when both are present; same schema,
	// fresher contents.
	if f := findEntry(zipReader, CollectionFileAnki21); f != nil {
		return f
	}
	return findEntry(zipReader, CollectionFile)
}

func findEntry(zipReader *zip.Reader, name string) *zip.File {
	for _, f := range zipReader.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// extractEntry streams a single zip entry to destPath rather than
// buffering it in memory; collection databases can be large.
func extractEntry(file *zip.File, destPath string) error {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	outFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer outFile.Close()

	_, err = io.Copy(outFile, rc)
	return err
}

func readMediaIndex(zipReader *zip.Reader) (map[string]string, error) {
	entry := findEntry(zipReader, MediaIndexFile)
	if entry == nil {
		// Older exports may omit the index entirely; treat as no media.
		return nil, nil
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open media index: %v", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read media index: %v", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	index := make(map[string]string)
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, fmt.Errorf("malformed media index: %v", err)
	}
	return index, nil
}

// substituteMediaNames rewrites [sound:...] and <img src="..."> refs
// that still point at numeric zip entry names so they use the original
// filenames instead.
func substituteMediaNames(cards []entities.Flashcard, index map[string]string) {
	for numeric, original := range index {
		soundRef := "[sound:" + numeric + "]"
		soundReplacement := "[sound:" + original + "]"
		for i := range cards {
			cards[i].Question = replaceMediaRef(cards[i].Question, numeric, original, soundRef, soundReplacement)
			cards[i].Answer = replaceMediaRef(cards[i].Answer, numeric, original, soundRef, soundReplacement)
			cards[i].ClozeText = replaceMediaRef(cards[i].ClozeText, numeric, original, soundRef, soundReplacement)
		}
	}
}

func replaceMediaRef(text, numeric, original, soundRef, soundReplacement string) string {
	if text == "" {
		return text
	}
	text = strings.ReplaceAll(text, soundRef, soundReplacement)
	text = strings.ReplaceAll(text, `src="`+numeric+`"`, `src="`+original+`"`)
	text = strings.ReplaceAll(text, `src='`+numeric+`'`, `src='`+original+`'`)
	return text
}
