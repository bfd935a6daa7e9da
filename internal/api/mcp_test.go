package api

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/callsight/callsight/internal/analysis"
	"github.com/callsight/callsight/internal/storage"
)

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return MCPDeps{
		Store:    store,
		Analysis: analysis.NewStage(store, &stubCompleter{}),
	}, store
}

func insertTranscribedCall(t *testing.T, store *storage.Store, id string) {
	t.Helper()
	record := storage.CallRecord{
		ID:              id,
		Filename:        id + ".wav",
		AudioHandle:     id + ".wav",
		UploadTimestamp: time.Now().UTC(),
	}
	if err := store.InsertCall(record); err != nil {
		t.Fatalf("InsertCall failed: %v", err)
	}
	err := store.UpdateCallFields(id, map[string]any{
		"transcription":        "hello world",
		"transcription_status": storage.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("UpdateCallFields failed: %v", err)
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestMCPListCalls_Empty(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	result, err := mcpListCalls(deps)(context.Background(), makeCallToolRequest("list_calls", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if got := toolText(t, result); got != "[]" {
		t.Errorf("text = %q, want []", got)
	}
}

func TestMCPListCalls(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	insertTranscribedCall(t, store, "call-1")
	insertTranscribedCall(t, store, "call-2")

	result, err := mcpListCalls(deps)(context.Background(), makeCallToolRequest("list_calls", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var calls []storage.CallListItem
	if err := json.Unmarshal([]byte(toolText(t, result)), &calls); err != nil {
		t.Fatalf("unmarshaling result: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("len(calls) = %d, want 2", len(calls))
	}
}

func TestMCPGetCall(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	insertTranscribedCall(t, store, "call-1")

	result, err := mcpGetCall(deps)(context.Background(), makeCallToolRequest("get_call", map[string]interface{}{"id": "call-1"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var record storage.CallRecord
	if err := json.Unmarshal([]byte(toolText(t, result)), &record); err != nil {
		t.Fatalf("unmarshaling result: %v", err)
	}
	if record.ID != "call-1" || record.Transcription == nil {
		t.Errorf("record = %+v", record)
	}
}

func TestMCPGetCall_NotFound(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	result, err := mcpGetCall(deps)(context.Background(), makeCallToolRequest("get_call", map[string]interface{}{"id": "nope"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing call")
	}
}

func TestMCPGetCall_MissingID(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	result, err := mcpGetCall(deps)(context.Background(), makeCallToolRequest("get_call", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing id argument")
	}
}

func TestMCPAnalyzeCall(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	insertTranscribedCall(t, store, "call-1")

	result, err := mcpAnalyzeCall(deps)(context.Background(), makeCallToolRequest("analyze_call", map[string]interface{}{"id": "call-1"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var record storage.CallRecord
	if err := json.Unmarshal([]byte(toolText(t, result)), &record); err != nil {
		t.Fatalf("unmarshaling result: %v", err)
	}
	if record.AnalysisStatus != storage.StatusCompleted {
		t.Errorf("analysis status = %q, want completed", record.AnalysisStatus)
	}
	if record.OverallScore == nil || *record.OverallScore != 82 {
		t.Errorf("overall score = %v, want 82", record.OverallScore)
	}
}

func TestMCPAnalyzeCall_NoTranscript(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	record := storage.CallRecord{
		ID:              "call-1",
		Filename:        "call-1.wav",
		AudioHandle:     "call-1.wav",
		UploadTimestamp: time.Now().UTC(),
	}
	if err := store.InsertCall(record); err != nil {
		t.Fatalf("InsertCall failed: %v", err)
	}

	result, err := mcpAnalyzeCall(deps)(context.Background(), makeCallToolRequest("analyze_call", map[string]interface{}{"id": "call-1"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for untranscribed call")
	}
}
