package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"cold_solutions_backend/internal/intelligence/transport"
	"cold_solutions_backend/platform/apperr"
)

const maxCSVRows = 5000

// csvColumns maps accepted header names onto import fields.
var csvColumns = map[string]func(*transport.ImportLead, string){
	"business_name":   func(l *transport.ImportLead, v string) { l.BusinessName = v },
	"name":            func(l *transport.ImportLead, v string) { l.BusinessName = v },
	"industry":        func(l *transport.ImportLead, v string) { l.Industry = v },
	"website":         func(l *transport.ImportLead, v string) { l.Website = v },
	"city":            func(l *transport.ImportLead, v string) { l.City = v },
	"country":         func(l *transport.ImportLead, v string) { l.Country = v },
	"address":         func(l *transport.ImportLead, v string) { l.Address = v },
	"zip_code":        func(l *transport.ImportLead, v string) { l.ZipCode = v },
	"postal_code":     func(l *transport.ImportLead, v string) { l.ZipCode = v },
	"state":           func(l *transport.ImportLead, v string) { l.State = v },
	"google_maps_url": func(l *transport.ImportLead, v string) { l.GoogleMapsURL = v },
	"maps_url":        func(l *transport.ImportLead, v string) { l.GoogleMapsURL = v },
}

// ImportCSV reads a CSV with a header row and imports the valid rows.
// Unknown columns are ignored.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (transport.ImportResult, error) {
	rows, err := parseCSV(r)
	if err != nil {
		return transport.ImportResult{}, err
	}
	return s.Import(ctx, rows)
}

func parseCSV(r io.Reader) ([]transport.ImportLead, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.Validation("csv file is empty")
	}
	if err != nil {
		return nil, apperr.BadRequest(fmt.Sprintf("failed to read csv header: %v", err))
	}

	setters := make([]func(*transport.ImportLead, string), len(header))
	known := 0
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if set, ok := csvColumns[key]; ok {
			setters[i] = set
			known++
		}
	}
	if known == 0 {
		return nil, apperr.Validation("csv header has no known columns")
	}

	var out []transport.ImportLead
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.BadRequest(fmt.Sprintf("failed to read csv row %d: %v", len(out)+1, err))
		}
		if len(out) == maxCSVRows {
			return nil, apperr.Validation(fmt.Sprintf("csv has more than %d rows", maxCSVRows))
		}

		var row transport.ImportLead
		for i, value := range record {
			if i < len(setters) && setters[i] != nil {
				setters[i](&row, strings.TrimSpace(value))
			}
		}
		out = append(out, row)
	}
	return out, nil
}
