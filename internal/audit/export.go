package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"
)

// ExportFormat defines supported export formats.
type ExportFormat string

const (
	// ExportFormatCSV exports decisions as comma-separated values.
	ExportFormatCSV ExportFormat = "csv"
	// ExportFormatJSON exports decisions as JSON array.
	ExportFormatJSON ExportFormat = "json"
)

// ExportOptions configures decision log export parameters.
type ExportOptions struct {
	Format    ExportFormat // Export format (csv or json)
	From      time.Time    // Start of time range (inclusive)
	To        time.Time    // End of time range (inclusive)
	Submitter string       // Filter by submitter (optional)
	Decision  string       // Filter by decision code (optional)
	Limit     int          // Maximum number of entries to export (0 = no limit)
}

// ExportDecisions exports decision records matching the given options.
// Returns the exported data as bytes in the specified format. Either a
// submitter or a decision filter is required.
func ExportDecisions(repo Repository, opts ExportOptions) ([]byte, error) {
	if opts.Format != ExportFormatCSV && opts.Format != ExportFormatJSON {
		return nil, fmt.Errorf("unsupported export format: %s", opts.Format)
	}

	// Query without limit first, then filter by time range, then apply the
	// limit, so the caller gets the right number of rows after filtering.
	var records []*DecisionRecord
	var err error

	switch {
	case opts.Submitter != "":
		records, err = repo.QueryBySubmitter(opts.Submitter, 0)
	case opts.Decision != "":
		records, err = repo.QueryByDecision(opts.Decision, 0)
	default:
		return nil, fmt.Errorf("export requires a submitter or decision filter")
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}

	if !opts.From.IsZero() || !opts.To.IsZero() {
		records = filterByTimeRange(records, opts.From, opts.To)
	}

	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}

	switch opts.Format {
	case ExportFormatCSV:
		return exportToCSV(records)
	case ExportFormatJSON:
		return exportToJSON(records)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", opts.Format)
	}
}

// filterByTimeRange filters records to only include entries within the time range.
func filterByTimeRange(records []*DecisionRecord, from, to time.Time) []*DecisionRecord {
	var filtered []*DecisionRecord
	for _, record := range records {
		if !from.IsZero() && record.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && record.CreatedAt.After(to) {
			continue
		}
		filtered = append(filtered, record)
	}
	return filtered
}

// exportToCSV exports decision records to CSV format.
func exportToCSV(records []*DecisionRecord) ([]byte, error) {
	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	header := []string{
		"ID",
		"Timestamp (UTC)",
		"Submitter",
		"Decision",
		"Fingerprint",
		"Request ID",
		"IP Address",
		"User Agent",
	}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, record := range records {
		row := []string{
			record.ID,
			record.CreatedAt.Format(time.RFC3339),
			record.Submitter,
			record.Decision,
			record.Fingerprint,
			record.RequestID,
			record.IPAddress,
			record.UserAgent,
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// exportToJSON exports decision records to JSON format.
func exportToJSON(records []*DecisionRecord) ([]byte, error) {
	type exportRecord struct {
		ID          string `json:"id"`
		Timestamp   string `json:"timestamp"` // ISO 8601 format
		Submitter   string `json:"submitter"`
		Decision    string `json:"decision"`
		Fingerprint string `json:"fingerprint,omitempty"`
		RequestID   string `json:"request_id,omitempty"`
		IPAddress   string `json:"ip_address,omitempty"`
		UserAgent   string `json:"user_agent,omitempty"`
	}

	exportRecords := make([]exportRecord, len(records))
	for i, record := range records {
		exportRecords[i] = exportRecord{
			ID:          record.ID,
			Timestamp:   record.CreatedAt.Format(time.RFC3339),
			Submitter:   record.Submitter,
			Decision:    record.Decision,
			Fingerprint: record.Fingerprint,
			RequestID:   record.RequestID,
			IPAddress:   record.IPAddress,
			UserAgent:   record.UserAgent,
		}
	}

	data, err := json.MarshalIndent(exportRecords, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return data, nil
}
