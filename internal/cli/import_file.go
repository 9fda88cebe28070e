package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jlienhard/schoolhouse/internal/config"
	"github.com/jlienhard/schoolhouse/internal/database"
	"github.com/jlienhard/schoolhouse/internal/database/flashcards"
	"github.com/jlienhard/schoolhouse/internal/services"
)

// ImportFileCommand imports a flashcard file into a topic.
type ImportFileCommand struct {
	FilePath     string
	DatabasePath string
	StagingDir   string
	TopicID      uint
	Delimiter    string
	ExtractMedia bool
	Verbose      bool
	DryRun       bool

	topicID64 uint64
}

func NewImportFileCommand() *ImportFileCommand {
	return &ImportFileCommand{}
}

func (cmd *ImportFileCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import-file", flag.ExitOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to the flashcard file to import (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the application database")
	fs.StringVar(&cmd.StagingDir, "staging", config.DefaultStagingDir, "Staging directory for Anki package extraction")
	fs.Uint64Var(&cmd.topicID64, "topic", 0, "Topic ID to import the cards into")
	fs.StringVar(&cmd.Delimiter, "delimiter", "", "Delimiter override for text files (default: auto-detect)")
	fs.BoolVar(&cmd.ExtractMedia, "extract-media", false, "Extract media files from Anki packages into the staging directory")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose output")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Parse and preview without saving anything")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import-file -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import flashcards from Quizlet/CSV/dash text, Anki .apkg or Mnemosyne XML.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Preview a Quizlet export:\n")
		fmt.Fprintf(os.Stderr, "  %s import-file -file cards.tsv -dry-run\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Import an Anki package into topic 3:\n")
		fmt.Fprintf(os.Stderr, "  %s import-file -file deck.apkg -topic 3\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	cmd.TopicID = uint(cmd.topicID64)
	if !cmd.DryRun && cmd.TopicID == 0 {
		return fmt.Errorf("required flag -topic not provided (or use -dry-run)")
	}

	return nil
}

func (cmd *ImportFileCommand) Run() error {
	content, err := os.ReadFile(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cmd.FilePath, err)
	}

	cfg := config.NewConfig()

	var (
		reader services.CardReader
		writer services.CardWriter
	)
	if !cmd.DryRun {
		db, err := database.NewDatabase(cmd.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		repo := flashcards.NewRepository(db.DB)
		reader, writer = repo, repo
	}

	importService := services.NewImportService(
		cfg.Limits.MaxImportSize,
		cmd.StagingDir,
		cfg.Limits.DuplicateThreshold,
		reader,
		writer,
	)

	preview := importService.Parse(filepath.Base(cmd.FilePath), content, cmd.Delimiter, cmd.ExtractMedia)

	fmt.Printf("Format:    %s\n", preview.Format)
	if preview.Delimiter != "" {
		fmt.Printf("Delimiter: %q\n", preview.Delimiter)
	}
	if preview.TotalLines > 0 {
		fmt.Printf("Lines:     %d\n", preview.TotalLines)
	}
	fmt.Printf("Cards:     %d\n", len(preview.Cards))

	for _, deck := range preview.Decks {
		fmt.Printf("Deck:      %s\n", deck.Name)
	}
	if preview.StagingDir != "" {
		names := make([]string, 0, len(preview.MediaFiles))
		for name := range preview.MediaFiles {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("Media:     %s -> %s\n", name, preview.MediaFiles[name])
		}
		fmt.Printf("Media dir: %s\n", preview.StagingDir)
	}
	for _, e := range preview.Errors {
		fmt.Printf("Error:     %s\n", e)
	}
	for _, e := range preview.ValidationErrors {
		fmt.Printf("Invalid:   %s\n", e)
	}
	if !preview.Success {
		if preview.Error != "" {
			return fmt.Errorf("import failed: %s", preview.Error)
		}
		return fmt.Errorf("import failed: no cards parsed")
	}

	if cmd.Verbose {
		for i := range preview.Cards {
			card := &preview.Cards[i]
			fmt.Printf("  %3d. [%s] %s -> %s\n", i+1, card.CardType, card.Question, card.Answer)
		}
	}

	if cmd.DryRun {
		fmt.Println("Dry run; nothing saved.")
		return nil
	}

	result, err := importService.Import(cmd.TopicID, preview.Cards, nil)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d cards into topic %d (%d failed validation)\n", result.Created, cmd.TopicID, result.Failed)
	return nil
}
