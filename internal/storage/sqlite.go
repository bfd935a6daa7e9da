package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding call records.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used
// by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "callsight.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Calls ---

const callColumns = `id, filename, audio_handle, duration_seconds, upload_timestamp,
	transcription, transcription_status, agent_sentiment, prospect_sentiment,
	call_summary, positive_highlights, improvement_suggestions, overall_score, analysis_status`

// updatableColumns is the allow-list for partial field updates.
var updatableColumns = map[string]bool{
	"duration_seconds":        true,
	"transcription":           true,
	"transcription_status":    true,
	"agent_sentiment":         true,
	"prospect_sentiment":      true,
	"call_summary":            true,
	"positive_highlights":     true,
	"improvement_suggestions": true,
	"overall_score":           true,
	"analysis_status":         true,
}

// InsertCall persists a new call record. Statuses default to pending when
// unset.
func (s *Store) InsertCall(c CallRecord) error {
	if c.TranscriptionStatus == "" {
		c.TranscriptionStatus = StatusPending
	}
	if c.AnalysisStatus == "" {
		c.AnalysisStatus = StatusPending
	}
	_, err := s.db.Exec(`
		INSERT INTO calls (id, filename, audio_handle, duration_seconds, upload_timestamp, transcription_status, analysis_status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Filename, c.AudioHandle, nullFloat(c.DurationSeconds),
		c.UploadTimestamp.UTC().Format(time.RFC3339), c.TranscriptionStatus, c.AnalysisStatus,
	)
	return err
}

// GetCall returns the full record for id, or ErrNotFound.
func (s *Store) GetCall(id string) (CallRecord, error) {
	row := s.db.QueryRow(`SELECT `+callColumns+` FROM calls WHERE id = ?`, id)
	c, err := scanCall(row)
	if err == sql.ErrNoRows {
		return CallRecord{}, ErrNotFound
	}
	return c, err
}

// ListCalls returns summary projections in insertion order. A limit <= 0
// returns everything; offset skips rows for pagination.
func (s *Store) ListCalls(limit, offset int) ([]CallListItem, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats negative LIMIT as "all rows".
	}
	rows, err := s.db.Query(`
		SELECT id, filename, upload_timestamp, transcription_status, analysis_status, overall_score
		FROM calls ORDER BY rowid ASC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []CallListItem
	for rows.Next() {
		var item CallListItem
		var score sql.NullInt64
		if err := rows.Scan(&item.ID, &item.Filename, &item.UploadTimestamp, &item.TranscriptionStatus, &item.AnalysisStatus, &score); err != nil {
			return nil, err
		}
		if score.Valid {
			v := int(score.Int64)
			item.OverallScore = &v
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

// UpdateCallFields applies a partial update to a single record. Field names
// must be in the updatable allow-list; values may be nil (SQL NULL), scalars,
// string slices, or sentiment structs (the latter two stored as JSON text).
func (s *Store) UpdateCallFields(id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		if !updatableColumns[name] {
			return fmt.Errorf("field %q is not updatable", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	args := make([]any, 0, len(names)+1)
	sb.WriteString("UPDATE calls SET ")
	for i, name := range names {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteString(" = ?")
		v, err := toColumnValue(fields[name])
		if err != nil {
			return fmt.Errorf("encoding field %q: %w", name, err)
		}
		args = append(args, v)
	}
	sb.WriteString(" WHERE id = ?")
	args = append(args, id)

	res, err := s.db.Exec(sb.String(), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteAnalysis writes all analysis fields and the completed status as
// one atomic update. A failed run never reaches this method, so the record
// is either fully completed or left as the previous attempt wrote it.
func (s *Store) CompleteAnalysis(id string, res AnalysisResult) error {
	return s.UpdateCallFields(id, map[string]any{
		"agent_sentiment":         res.AgentSentiment,
		"prospect_sentiment":      res.ProspectSentiment,
		"call_summary":            res.CallSummary,
		"positive_highlights":     res.PositiveHighlights,
		"improvement_suggestions": res.ImprovementSuggestions,
		"overall_score":           res.OverallScore,
		"analysis_status":         StatusCompleted,
	})
}

// toColumnValue converts a field value to a driver-friendly representation.
func toColumnValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, int, int64, float64, bool:
		return val, nil
	case SentimentScores:
		return marshalJSON(val)
	case *SentimentScores:
		if val == nil {
			return nil, nil
		}
		return marshalJSON(val)
	case []string:
		if val == nil {
			return nil, nil
		}
		return marshalJSON(val)
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (CallRecord, error) {
	var c CallRecord
	var duration sql.NullFloat64
	var uploadedAt string
	var transcription, agentJSON, prospectJSON, summary, highlightsJSON, sugJSON sql.NullString
	var score sql.NullInt64

	err := row.Scan(
		&c.ID, &c.Filename, &c.AudioHandle, &duration, &uploadedAt,
		&transcription, &c.TranscriptionStatus, &agentJSON, &prospectJSON,
		&summary, &highlightsJSON, &sugJSON, &score, &c.AnalysisStatus,
	)
	if err != nil {
		return CallRecord{}, err
	}

	t, err := time.Parse(time.RFC3339, uploadedAt)
	if err != nil {
		return CallRecord{}, fmt.Errorf("parsing upload_timestamp: %w", err)
	}
	c.UploadTimestamp = t

	if duration.Valid {
		c.DurationSeconds = &duration.Float64
	}
	if transcription.Valid {
		c.Transcription = &transcription.String
	}
	if summary.Valid {
		c.CallSummary = &summary.String
	}
	if score.Valid {
		v := int(score.Int64)
		c.OverallScore = &v
	}
	if agentJSON.Valid {
		var sc SentimentScores
		if err := json.Unmarshal([]byte(agentJSON.String), &sc); err != nil {
			return CallRecord{}, fmt.Errorf("parsing agent_sentiment: %w", err)
		}
		c.AgentSentiment = &sc
	}
	if prospectJSON.Valid {
		var sc SentimentScores
		if err := json.Unmarshal([]byte(prospectJSON.String), &sc); err != nil {
			return CallRecord{}, fmt.Errorf("parsing prospect_sentiment: %w", err)
		}
		c.ProspectSentiment = &sc
	}
	if highlightsJSON.Valid {
		if err := json.Unmarshal([]byte(highlightsJSON.String), &c.PositiveHighlights); err != nil {
			return CallRecord{}, fmt.Errorf("parsing positive_highlights: %w", err)
		}
	}
	if sugJSON.Valid {
		if err := json.Unmarshal([]byte(sugJSON.String), &c.ImprovementSuggestions); err != nil {
			return CallRecord{}, fmt.Errorf("parsing improvement_suggestions: %w", err)
		}
	}

	return c, nil
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
