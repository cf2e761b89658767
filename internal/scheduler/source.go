// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package scheduler

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/tomtom215/csvingest/internal/ingest"
)

// Source opens the file the gate re-ingests on every tick. A path that does
// not exist must yield an error matching ingest.ErrSourceMissing; any other
// failure is treated as transient.
type Source interface {
	Open(path string) (io.ReadCloser, error)
}

// FileSource reads from the local filesystem.
type FileSource struct{}

var _ Source = FileSource{}

// Open opens path for reading.
func (FileSource) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ingest.SourceMissingError{Path: path, Cause: err}
		}
		return nil, ingest.NewFileProcessingError(err)
	}
	return f, nil
}
