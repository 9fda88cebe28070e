package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jlienhard/schoolhouse/internal/config"
	"github.com/jlienhard/schoolhouse/internal/database"
	"github.com/jlienhard/schoolhouse/internal/database/flashcards"
	"github.com/jlienhard/schoolhouse/internal/exporters"
	"github.com/jlienhard/schoolhouse/internal/services"
)

// ExportDeckCommand exports a topic's flashcards to a file.
type ExportDeckCommand struct {
	DatabasePath string
	StagingDir   string
	Format       string
	DeckName     string
	OutputDir    string
	TopicID      uint

	topicID64 uint64
}

func NewExportDeckCommand() *ExportDeckCommand {
	return &ExportDeckCommand{}
}

func (cmd *ExportDeckCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("export-deck", flag.ExitOnError)

	fs.Uint64Var(&cmd.topicID64, "topic", 0, "Topic ID to export (required)")
	fs.StringVar(&cmd.Format, "format", "json", "Export format: json, csv, quizlet, mnemosyne, supermemo, anki")
	fs.StringVar(&cmd.DeckName, "deck", "", "Deck name (default: the topic name)")
	fs.StringVar(&cmd.OutputDir, "output", ".", "Directory to write the export file into")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the application database")
	fs.StringVar(&cmd.StagingDir, "staging", config.DefaultStagingDir, "Staging directory for Anki package construction")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s export-deck -topic <id> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Export a topic's flashcards to one of the supported formats.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s export-deck -topic 3 -format anki -deck \"State Capitals\"\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd.TopicID = uint(cmd.topicID64)
	if cmd.TopicID == 0 {
		return fmt.Errorf("required flag -topic not provided")
	}

	return nil
}

func (cmd *ExportDeckCommand) Run() error {
	cfg := config.NewConfig()

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	repo := flashcards.NewRepository(db.DB)
	engine := exporters.NewEngine(cfg.Limits.MaxExportSize, cmd.StagingDir)
	exportService := services.NewExportService(engine, repo)

	opts := exporters.DefaultOptions()
	opts.DeckName = cmd.DeckName

	result, err := exportService.ExportTopic(cmd.TopicID, exporters.Format(cmd.Format), opts)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("export failed: %s", result.Error)
	}

	outPath := filepath.Join(cmd.OutputDir, result.Filename)
	if err := os.WriteFile(outPath, result.Content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote %s (%d bytes, %s)\n", outPath, len(result.Content), result.MIMEType)
	return nil
}
