// Package report renders a completed call analysis into downloadable
// documents. Only structure, order, and content are contractual; visual
// styling is presentation.
package report

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/callsight/callsight/internal/storage"
)

const reportTitle = "Sales Call Analysis Report"

var (
	// ErrNotReady is returned when analysis has not completed for the call.
	ErrNotReady = errors.New("analysis not completed yet")
	// ErrUnsupportedFormat is returned for unknown format tokens.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// RecordGetter is the slice of the record store the exporter needs.
type RecordGetter interface {
	GetCall(id string) (storage.CallRecord, error)
}

// Report is a rendered document plus download metadata.
type Report struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Exporter renders completed call records.
type Exporter struct {
	records RecordGetter
}

func NewExporter(records RecordGetter) *Exporter {
	return &Exporter{records: records}
}

// Export renders the call with the given id in the requested format
// ("pdf", "csv", or "xlsx", case-insensitive). The record must exist and
// its analysis must be completed.
func (e *Exporter) Export(ctx context.Context, id, format string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	record, err := e.records.GetCall(id)
	if err != nil {
		return Report{}, err
	}
	if record.AnalysisStatus != storage.StatusCompleted {
		return Report{}, ErrNotReady
	}

	switch strings.ToLower(format) {
	case "pdf":
		data, err := renderPDF(record)
		if err != nil {
			return Report{}, fmt.Errorf("rendering pdf: %w", err)
		}
		return Report{Data: data, Filename: record.ID + "_report.pdf", ContentType: "application/pdf"}, nil
	case "csv":
		data, err := renderCSV(record)
		if err != nil {
			return Report{}, fmt.Errorf("rendering csv: %w", err)
		}
		return Report{Data: data, Filename: record.ID + "_report.csv", ContentType: "text/csv"}, nil
	case "xlsx":
		data, err := renderXLSX(record)
		if err != nil {
			return Report{}, fmt.Errorf("rendering xlsx: %w", err)
		}
		return Report{
			Data:        data,
			Filename:    record.ID + "_report.xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		}, nil
	default:
		return Report{}, fmt.Errorf("%w: %q (use pdf, csv, or xlsx)", ErrUnsupportedFormat, format)
	}
}

// sentimentRows returns the fixed metric table shared by all formats:
// a header row followed by the four metrics in contract order.
func sentimentRows(record storage.CallRecord) [][]string {
	agent := record.AgentSentiment
	prospect := record.ProspectSentiment
	if agent == nil {
		agent = &storage.SentimentScores{}
	}
	if prospect == nil {
		prospect = &storage.SentimentScores{}
	}
	return [][]string{
		{"Metric", "Agent", "Prospect"},
		{"Empathy", strconv.Itoa(agent.Empathy), strconv.Itoa(prospect.Empathy)},
		{"Engagement", strconv.Itoa(agent.Engagement), strconv.Itoa(prospect.Engagement)},
		{"Enthusiasm", strconv.Itoa(agent.Enthusiasm), strconv.Itoa(prospect.Enthusiasm)},
		{"Politeness", strconv.Itoa(agent.Politeness), strconv.Itoa(prospect.Politeness)},
	}
}

func formatDate(record storage.CallRecord) string {
	return record.UploadTimestamp.Format(time.RFC3339)
}

func formatScore(record storage.CallRecord) string {
	if record.OverallScore == nil {
		return "N/A"
	}
	return strconv.Itoa(*record.OverallScore)
}

func summaryText(record storage.CallRecord) string {
	if record.CallSummary == nil {
		return "N/A"
	}
	return *record.CallSummary
}

// tabularRows is the full row layout used by the CSV and XLSX renderers.
func tabularRows(record storage.CallRecord) [][]string {
	rows := [][]string{
		{reportTitle},
		{},
		{"File", record.Filename},
		{"Date", formatDate(record)},
		{"Overall Score", formatScore(record)},
		{},
		{"Call Summary"},
		{summaryText(record)},
		{},
		{"Sentiment Analysis"},
	}
	rows = append(rows, sentimentRows(record)...)
	rows = append(rows, []string{}, []string{"Positive Highlights"})
	for _, h := range record.PositiveHighlights {
		rows = append(rows, []string{h})
	}
	rows = append(rows, []string{}, []string{"Improvement Suggestions"})
	for _, s := range record.ImprovementSuggestions {
		rows = append(rows, []string{s})
	}
	return rows
}
