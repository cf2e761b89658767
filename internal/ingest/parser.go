// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/tomtom215/csvingest/internal/models"
)

// recordFields is the number of positional columns a data row must carry.
const recordFields = 3

// Parser turns name,age,email CSV into records. The first row is always a
// header and is discarded without inspection.
type Parser struct{}

// Parse reads the whole stream and returns every data row in order.
//
// Errors:
//   - *CsvFormatError: syntax error, a row with fewer than 3 fields, or a
//     non-integer age
//   - *FileProcessingError: the underlying reader failed
//
// On error no records are returned.
func (Parser) Parse(r io.Reader) ([]models.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var records []models.Record
	header := true

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, classifyReadError(err)
		}

		if header {
			header = false
			continue
		}

		line, _ := reader.FieldPos(0)
		rec, err := toRecord(row, line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

func toRecord(row []string, line int) (models.Record, error) {
	if len(row) < recordFields {
		return models.Record{}, NewCsvFormatError(line,
			fmt.Errorf("expected %d fields, got %d", recordFields, len(row)))
	}

	age, err := strconv.Atoi(row[1])
	if err != nil {
		return models.Record{}, NewCsvFormatError(line, fmt.Errorf("invalid age %q", row[1]))
	}

	return models.Record{Name: row[0], Age: age, Email: row[2]}, nil
}

// classifyReadError separates malformed CSV from failures of the reader itself.
func classifyReadError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return NewCsvFormatError(parseErr.Line, parseErr.Err)
	}
	return NewFileProcessingError(err)
}
