package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Stage status values shared by transcription_status and analysis_status.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// SentimentScores holds per-party tone metrics produced by the analysis
// stage. Metric values are clamped to [0,100] before they reach storage.
type SentimentScores struct {
	Empathy           int    `json:"empathy"`
	Engagement        int    `json:"engagement"`
	Enthusiasm        int    `json:"enthusiasm"`
	Politeness        int    `json:"politeness"`
	GeneralSentiment  string `json:"general_sentiment"`
	ProfanityDetected bool   `json:"profanity_detected"`
}

// CallRecord tracks one uploaded audio file through transcription and
// analysis. Optional fields are nil until the owning stage completes.
type CallRecord struct {
	ID              string    `json:"id"`
	Filename        string    `json:"filename"`
	AudioHandle     string    `json:"audio_handle"`
	DurationSeconds *float64  `json:"duration_seconds,omitempty"`
	UploadTimestamp time.Time `json:"upload_timestamp"`

	Transcription       *string `json:"transcription,omitempty"`
	TranscriptionStatus string  `json:"transcription_status"`

	AgentSentiment         *SentimentScores `json:"agent_sentiment,omitempty"`
	ProspectSentiment      *SentimentScores `json:"prospect_sentiment,omitempty"`
	CallSummary            *string          `json:"call_summary,omitempty"`
	PositiveHighlights     []string         `json:"positive_highlights,omitempty"`
	ImprovementSuggestions []string         `json:"improvement_suggestions,omitempty"`
	OverallScore           *int             `json:"overall_score,omitempty"`
	AnalysisStatus         string           `json:"analysis_status"`
}

// CallListItem is the summary projection returned by list queries.
type CallListItem struct {
	ID                  string `json:"id"`
	Filename            string `json:"filename"`
	UploadTimestamp     string `json:"upload_timestamp"`
	TranscriptionStatus string `json:"transcription_status"`
	AnalysisStatus      string `json:"analysis_status"`
	OverallScore        *int   `json:"overall_score,omitempty"`
}

// AnalysisResult is the full output of one analysis run, written to the
// record as a single atomic update.
type AnalysisResult struct {
	AgentSentiment         SentimentScores
	ProspectSentiment      SentimentScores
	CallSummary            string
	PositiveHighlights     []string
	ImprovementSuggestions []string
	OverallScore           int
}
