package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Kuma3D/PTTracker/internal/config"
	"github.com/Kuma3D/PTTracker/internal/errors"
	"github.com/Kuma3D/PTTracker/internal/session"
)

// ReplayInput contains parameters for the Replay operation.
type ReplayInput struct {
	Session string // target session ID or name, required
	Path    string // required
}

// ReplayOutput contains the result of the Replay operation.
type ReplayOutput struct {
	Replayed int           `json:"replayed"`
	Skipped  int           `json:"skipped"`
	Errors   []ReplayError `json:"errors,omitempty"`
}

// ReplayError describes a line that could not be replayed.
type ReplayError struct {
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Replay feeds messages from a JSONL export file through the tracker as if
// they had just arrived, rebuilding headers and state from scratch. Bad
// lines are skipped and reported; the rest of the file still replays.
func Replay(ctx context.Context, mgr *session.Manager, cfg *config.Config, input ReplayInput) (*ReplayOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	row, err := ResolveSession(mgr.DB(), input.Session)
	if err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, parseErrors := parseExportFile(file)

	replayed := 0
	skipped := len(parseErrors)
	replayErrors := parseErrors

	for _, rec := range records {
		select {
		case <-ctx.Done():
			return nil, errors.NewCancelled("replay")
		default:
		}

		if _, err := Ingest(mgr, IngestInput{
			Session: row.ID,
			Role:    rec.record.Role,
			Text:    rec.record.Text,
		}); err != nil {
			replayErrors = append(replayErrors, ReplayError{
				Line:    rec.line,
				Code:    "INGEST_FAILED",
				Message: err.Error(),
			})
			skipped++
			continue
		}
		replayed++
	}

	return &ReplayOutput{
		Replayed: replayed,
		Skipped:  skipped,
		Errors:   replayErrors,
	}, nil
}

// parsedRecord pairs an export record with its line number for error
// reporting.
type parsedRecord struct {
	line   int
	record ExportRecord
}

// parseExportFile parses a JSONL export file. Unparseable lines become
// errors; the header line and any valid records are separated out.
func parseExportFile(file *os.File) ([]parsedRecord, []ReplayError) {
	var records []parsedRecord
	var parseErrors []ReplayError

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record ExportRecord
		if err := json.Unmarshal(line, &record); err != nil {
			parseErrors = append(parseErrors, ReplayError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		// Skip the header line
		if record.TrackerExport {
			continue
		}

		if record.Role != RoleUser && record.Role != RoleAI {
			parseErrors = append(parseErrors, ReplayError{
				Line:    lineNum,
				Code:    "INVALID_RECORD",
				Message: fmt.Sprintf("role must be %q or %q", RoleUser, RoleAI),
			})
			continue
		}
		if record.Text == "" {
			parseErrors = append(parseErrors, ReplayError{
				Line:    lineNum,
				Code:    "INVALID_RECORD",
				Message: "missing text field",
			})
			continue
		}

		records = append(records, parsedRecord{line: lineNum, record: record})
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ReplayError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, parseErrors
}
