// Package importers turns third-party flashcard exports into the
// normalized card model.
//
// # Architecture
//
// The import flow is:
//
//	Upload → DetectFormat → format parser → ParseResult → dedupe check → persistence
//
// This package owns format detection and the delimited-text family of
// parsers (Quizlet tab-separated, CSV, dash-delimited, pipe-delimited).
// The binary formats live in their own packages: internal/anki reads
// .apkg packages, internal/mnemosyne reads Mnemosyne XML. All parsers
// produce entities.Flashcard values and collect per-record errors
// instead of aborting the batch, so a partially broken file still
// imports its valid rows.
//
// # Adding a New Import Format
//
// To add support for a new source format:
//
//  1. Add a Format constant and teach DetectFormat to recognize it
//     (extension first, content sniff as fallback).
//
//  2. Write a parser that returns a ParseResult. Record row-level
//     problems as "Line N: ..." strings in Errors and keep going;
//     reserve Success=false for input that yielded nothing usable.
//
//  3. Route the new format in services.ImportService.Parse.
package importers
