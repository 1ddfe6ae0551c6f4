// export.go implements GET /api/trips/{id}/export.
// Returns the trip's itinerary as a flat table, one row per activity.
// Supports content negotiation via ?format=csv (CSV) or default (JSON).

package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/pkordes/tripmind/internal/api"
	"github.com/pkordes/tripmind/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"trip_id", "destination", "day", "date", "day_title",
	"time", "activity", "location", "notes", "cost",
}

// GetExport implements GET /api/trips/{id}/export.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	if format != "" && format != "csv" && format != "json" {
		writeJSON(w, http.StatusBadRequest, requestBody("format must be csv or json"))
		return
	}

	rows, err := s.export.Export(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, "trip not found", "")
		return
	}

	if format == "csv" {
		buf := buildCSV(rows)
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
		return
	}

	out := make([]api.ExportRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, api.FromExportRow(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// buildCSV encodes rows as CSV with a header line.
func buildCSV(rows []domain.ExportRow) *bytes.Buffer {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	w.Write(csvHeaders)
	for _, r := range rows {
		//nolint:errcheck
		w.Write(rowToCSVRecord(r))
	}
	w.Flush()
	return &buf
}

// rowToCSVRecord encodes a domain.ExportRow as a flat string slice.
// A nil cost is encoded as an empty string.
func rowToCSVRecord(r domain.ExportRow) []string {
	cost := ""
	if r.Cost != nil {
		cost = strconv.FormatFloat(*r.Cost, 'f', 2, 64)
	}
	return []string{
		r.TripID,
		r.Destination,
		strconv.Itoa(r.Day),
		r.Date,
		r.DayTitle,
		r.Time,
		r.Activity,
		r.Location,
		r.Notes,
		cost,
	}
}
