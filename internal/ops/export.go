package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Kuma3D/PTTracker/internal/config"
	"github.com/Kuma3D/PTTracker/internal/db"
	"github.com/Kuma3D/PTTracker/internal/errors"
	"github.com/Kuma3D/PTTracker/internal/tracker"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Session string // required
	Path    string // optional, default: ~/.pttracker/exports/<session>-<timestamp>.jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader is the first line of a JSONL export file.
type ExportHeader struct {
	TrackerExport bool   `json:"_pttracker_export"`
	SchemaVersion string `json:"schema_version"`
	Session       string `json:"session"`
	ExportedAt    int64  `json:"exported_at"`
}

// ExportRecord is one message line in a JSONL export file. Text keeps its
// tag expressions so a replay can rebuild state from scratch.
type ExportRecord struct {
	// Set only on the header line; Replay uses it to skip that line.
	TrackerExport bool `json:"_pttracker_export,omitempty"`

	ID       string            `json:"id,omitempty"`
	Index    int               `json:"index"`
	Role     string            `json:"role,omitempty"`
	Text     string            `json:"text,omitempty"`
	Header   string            `json:"header,omitempty"`
	Snapshot *tracker.Snapshot `json:"snapshot,omitempty"`
}

// Export writes a session's transcript to a JSONL file: one header line,
// then one line per message in position order. The file is written to a
// temp path and renamed into place so a failed export never clobbers an
// existing file.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	row, err := ResolveSession(database, input.Session)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	exportedAt := now.Unix()

	exportPath := input.Path
	if exportPath == "" {
		exportPath, err = defaultExportPath(row.NameRaw, now)
		if err != nil {
			return nil, err
		}
	}

	// Default paths are validated too: a hostile session name must not be
	// able to steer the file anywhere unexpected.
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	// Write to temp file first, then atomic rename to preserve any existing
	// file on failure.
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	header := ExportHeader{
		TrackerExport: true,
		SchemaVersion: "1.0",
		Session:       row.NameRaw,
		ExportedAt:    exportedAt,
	}
	if err := writeJSONLine(file, header); err != nil {
		return nil, err
	}

	msgs, err := db.ListMessages(database, row.ID)
	if err != nil {
		return nil, err
	}

	count := 0
	for _, m := range msgs {
		select {
		case <-ctx.Done():
			return nil, errors.NewCancelled("export")
		default:
		}

		record := ExportRecord{
			ID:    m.ID,
			Index: m.Index,
			Role:  roleString(m.IsUser),
			Text:  m.Text,
		}
		if m.Header != nil {
			record.Header = *m.Header
		}
		if m.SnapshotJSON != nil {
			var snap tracker.Snapshot
			if err := json.Unmarshal([]byte(*m.SnapshotJSON), &snap); err == nil {
				record.Snapshot = &snap
			}
		}

		if err := writeJSONLine(file, record); err != nil {
			return nil, err
		}
		count++
	}

	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}

	// Close before atomic replace (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink destination.
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}

	// On Windows, os.Rename fails if the destination exists. Failing safely
	// preserves the existing file instead of risking a non-atomic
	// delete+rename.
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows yet (choose a new path or delete the existing file)")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{
		Path:       exportPath,
		Count:      count,
		ExportedAt: exportedAt,
	}, nil
}

// writeJSONLine marshals v and writes it followed by a newline.
func writeJSONLine(file *os.File, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.NewInternal(err)
	}
	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := file.Write([]byte("\n")); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// defaultExportPath generates the default export path.
// Format: ~/.pttracker/exports/<session>-<timestamp>.jsonl
func defaultExportPath(sessionName string, now time.Time) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}

	timestamp := now.Format("2006-01-02T150405")
	name := SanitizeForFilename(db.NormalizeName(sessionName))

	filename := fmt.Sprintf("%s-%s.jsonl", name, timestamp)
	return filepath.Join(homeDir, ".pttracker", "exports", filename), nil
}
