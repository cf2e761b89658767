// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package ingest

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is classification. Every typed error below matches
// exactly one of them.
var (
	// ErrInvalidInput marks uploads rejected before any byte is read.
	ErrInvalidInput = errors.New("invalid input")

	// ErrFileProcessing marks failures to read the source bytes.
	ErrFileProcessing = errors.New("file processing failed")

	// ErrCsvFormat marks content that was read but is not valid name,age,email CSV.
	ErrCsvFormat = errors.New("malformed csv")

	// ErrSourceMissing marks a scheduled source that does not exist.
	ErrSourceMissing = errors.New("source missing")
)

// InvalidInputError is returned by the upload validator. Message is safe to
// show to clients verbatim.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return e.Message
}

// Is reports whether target is ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// FileProcessingError wraps an I/O failure while reading a source.
type FileProcessingError struct {
	Cause error
}

// NewFileProcessingError wraps cause.
func NewFileProcessingError(cause error) *FileProcessingError {
	return &FileProcessingError{Cause: cause}
}

func (e *FileProcessingError) Error() string {
	if e.Cause == nil {
		return ErrFileProcessing.Error()
	}
	return e.Cause.Error()
}

// Unwrap returns the underlying I/O error.
func (e *FileProcessingError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrFileProcessing.
func (e *FileProcessingError) Is(target error) bool {
	return target == ErrFileProcessing
}

// CsvFormatError reports a row that cannot be mapped to a record.
// Line is the 1-based line in the input, 0 when unknown.
type CsvFormatError struct {
	Line  int
	Cause error
}

// NewCsvFormatError wraps cause with the offending line number.
func NewCsvFormatError(line int, cause error) *CsvFormatError {
	return &CsvFormatError{Line: line, Cause: cause}
}

func (e *CsvFormatError) Error() string {
	switch {
	case e.Cause == nil:
		return fmt.Sprintf("line %d: %s", e.Line, ErrCsvFormat)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %v", e.Line, e.Cause)
	default:
		return e.Cause.Error()
	}
}

// Unwrap returns the underlying parse error.
func (e *CsvFormatError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrCsvFormat.
func (e *CsvFormatError) Is(target error) bool {
	return target == ErrCsvFormat
}

// SourceMissingError is returned by a scheduled source whose path does not exist.
type SourceMissingError struct {
	Path  string
	Cause error
}

func (e *SourceMissingError) Error() string {
	return "data file not found at: " + e.Path
}

// Unwrap returns the underlying error, typically fs.ErrNotExist.
func (e *SourceMissingError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrSourceMissing.
func (e *SourceMissingError) Is(target error) bool {
	return target == ErrSourceMissing
}

// PersistenceError wraps a store failure. It deliberately matches no
// sentinel: callers treat it as unclassified.
type PersistenceError struct {
	Count int
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %d users: %v", e.Count, e.Cause)
}

// Unwrap returns the store error.
func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// Outcome labels used for metrics and run records.
const (
	OutcomeSuccess        = "success"
	OutcomeInvalidInput   = "invalid_input"
	OutcomeFileProcessing = "file_processing_error"
	OutcomeCsvFormat      = "csv_format_error"
	OutcomeSourceMissing  = "source_missing"
	OutcomeUnclassified   = "error"
)

// OutcomeLabel maps an ingestion error to a low-cardinality label.
func OutcomeLabel(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrInvalidInput):
		return OutcomeInvalidInput
	case errors.Is(err, ErrSourceMissing):
		return OutcomeSourceMissing
	case errors.Is(err, ErrCsvFormat):
		return OutcomeCsvFormat
	case errors.Is(err, ErrFileProcessing):
		return OutcomeFileProcessing
	default:
		return OutcomeUnclassified
	}
}
