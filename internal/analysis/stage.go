// Package analysis implements the LLM-backed sentiment and performance
// stage of the call pipeline, including tolerant extraction of JSON from
// free-form model output.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/callsight/callsight/internal/ai"
	"github.com/callsight/callsight/internal/storage"
)

var (
	// ErrNoTranscript is returned when analysis is invoked before any
	// transcript text exists on the record.
	ErrNoTranscript = errors.New("call must be transcribed first")
	// ErrMalformedResponse is returned when a model response does not
	// contain parseable JSON. The stage fails hard; there is no retry.
	ErrMalformedResponse = errors.New("malformed model response")
)

// RecordStore is the slice of the record store the stage needs.
type RecordStore interface {
	GetCall(id string) (storage.CallRecord, error)
	UpdateCallFields(id string, fields map[string]any) error
	CompleteAnalysis(id string, res storage.AnalysisResult) error
}

// Stage runs the two-request analysis workflow against a call transcript.
// Re-invocation repeats the full sequence; concurrent runs on the same id
// race last-write-wins.
type Stage struct {
	records   RecordStore
	completer ai.Completer
	logger    *slog.Logger
}

func NewStage(records RecordStore, completer ai.Completer) *Stage {
	return &Stage{records: records, completer: completer, logger: slog.Default()}
}

// Payload fields are pointers (and raw slices) so a response that parses
// as JSON but lacks a required field is distinguishable from zero values.
type sentimentPayload struct {
	Agent    *storage.SentimentScores `json:"agent"`
	Prospect *storage.SentimentScores `json:"prospect"`
}

type performancePayload struct {
	Summary      *string  `json:"summary"`
	Positives    []string `json:"positives"`
	Improvements []string `json:"improvements"`
	Score        *int     `json:"score"`
}

func (p sentimentPayload) validate() error {
	if p.Agent == nil || p.Prospect == nil {
		return fmt.Errorf("%w: sentiment payload missing agent or prospect block", ErrMalformedResponse)
	}
	return nil
}

func (p performancePayload) validate() error {
	if p.Summary == nil || p.Positives == nil || p.Improvements == nil || p.Score == nil {
		return fmt.Errorf("%w: performance payload missing required fields", ErrMalformedResponse)
	}
	return nil
}

// Run analyzes the call with the given id. It requires transcript text on
// the record (the transcription status itself is not consulted). The two
// generation requests run concurrently; both must parse before anything is
// merged, and the merge plus the completed status is one atomic update.
// Any failure after the processing mark sets analysis_status to failed and
// leaves the analysis fields of earlier attempts as they were.
func (s *Stage) Run(ctx context.Context, id string) (storage.AnalysisResult, error) {
	record, err := s.records.GetCall(id)
	if err != nil {
		return storage.AnalysisResult{}, err
	}
	if record.Transcription == nil || *record.Transcription == "" {
		return storage.AnalysisResult{}, ErrNoTranscript
	}
	transcript := *record.Transcription

	if err := s.records.UpdateCallFields(id, map[string]any{
		"analysis_status": storage.StatusProcessing,
	}); err != nil {
		return storage.AnalysisResult{}, fmt.Errorf("marking analysis processing: %w", err)
	}

	result, err := s.analyze(ctx, transcript)
	if err != nil {
		s.logger.Warn("analysis failed", "call_id", id, "error", err)
		if failErr := s.records.UpdateCallFields(id, map[string]any{
			"analysis_status": storage.StatusFailed,
		}); failErr != nil {
			s.logger.Error("failed to mark analysis failed", "call_id", id, "error", failErr)
		}
		return storage.AnalysisResult{}, err
	}

	if err := s.records.CompleteAnalysis(id, result); err != nil {
		s.logger.Error("failed to save analysis", "call_id", id, "error", err)
		if failErr := s.records.UpdateCallFields(id, map[string]any{
			"analysis_status": storage.StatusFailed,
		}); failErr != nil {
			s.logger.Error("failed to mark analysis failed", "call_id", id, "error", failErr)
		}
		return storage.AnalysisResult{}, fmt.Errorf("saving analysis: %w", err)
	}

	s.logger.Info("analysis completed", "call_id", id, "overall_score", result.OverallScore)
	return result, nil
}

func (s *Stage) analyze(ctx context.Context, transcript string) (storage.AnalysisResult, error) {
	var sentiments sentimentPayload
	var performance performancePayload

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := s.completer.Complete(gctx, systemPrompt, SentimentPrompt(transcript))
		if err != nil {
			return fmt.Errorf("sentiment request: %w", err)
		}
		if err := decodeResponse(raw, &sentiments); err != nil {
			return err
		}
		return sentiments.validate()
	})
	g.Go(func() error {
		raw, err := s.completer.Complete(gctx, systemPrompt, PerformancePrompt(transcript))
		if err != nil {
			return fmt.Errorf("performance request: %w", err)
		}
		if err := decodeResponse(raw, &performance); err != nil {
			return err
		}
		return performance.validate()
	})
	if err := g.Wait(); err != nil {
		return storage.AnalysisResult{}, err
	}

	normalizeScores(sentiments.Agent)
	normalizeScores(sentiments.Prospect)

	return storage.AnalysisResult{
		AgentSentiment:         *sentiments.Agent,
		ProspectSentiment:      *sentiments.Prospect,
		CallSummary:            *performance.Summary,
		PositiveHighlights:     performance.Positives,
		ImprovementSuggestions: performance.Improvements,
		OverallScore:           clamp(*performance.Score),
	}, nil
}

// normalizeScores clamps metric values to [0,100] and canonicalizes the
// sentiment label; the upstream producer does not enforce either bound.
func normalizeScores(sc *storage.SentimentScores) {
	sc.Empathy = clamp(sc.Empathy)
	sc.Engagement = clamp(sc.Engagement)
	sc.Enthusiasm = clamp(sc.Enthusiasm)
	sc.Politeness = clamp(sc.Politeness)

	switch strings.ToLower(strings.TrimSpace(sc.GeneralSentiment)) {
	case "positive":
		sc.GeneralSentiment = "Positive"
	case "negative":
		sc.GeneralSentiment = "Negative"
	default:
		sc.GeneralSentiment = "Neutral"
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
