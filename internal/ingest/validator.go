// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package ingest

import (
	"io"
	"strings"
)

// CSVContentType is the only content type accepted for uploads.
const CSVContentType = "text/csv"

// Client-facing rejection messages.
const (
	MsgFileEmpty       = "File is empty"
	MsgInvalidFileType = "Invalid file type. Only CSV files are allowed"
)

// Upload describes a file received over HTTP.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Validator checks an upload before any of its content is read.
type Validator interface {
	Validate(u Upload) error
}

// UploadValidator rejects empty uploads and anything not declared as text/csv.
type UploadValidator struct{}

var _ Validator = UploadValidator{}

// Validate returns *InvalidInputError or nil. Emptiness is checked first.
// The content type must equal text/csv ignoring case; parameters such as
// "; charset=utf-8" are not stripped and cause rejection.
func (UploadValidator) Validate(u Upload) error {
	if u.Size == 0 {
		return &InvalidInputError{Message: MsgFileEmpty}
	}
	if !strings.EqualFold(u.ContentType, CSVContentType) {
		return &InvalidInputError{Message: MsgInvalidFileType}
	}
	return nil
}
