package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"topovibe/pkg/utils"
)

// DebugChunksDir is where stream dumps are written, one folder per turn.
const DebugChunksDir = "debug/chunks"

// StreamDebugger appends raw provider packets to debug/chunks/<id>/<provider>.log.
// A disabled debugger is a no-op so providers can call it unconditionally.
type StreamDebugger struct {
	file *os.File
}

// NewStreamDebugger opens the dump file for one stream when enabled.
// The directory is keyed by the DebugDirContextKey value so every model
// round of one turn lands in the same folder.
func NewStreamDebugger(ctx context.Context, provider string, enabled bool) *StreamDebugger {
	if !enabled {
		return &StreamDebugger{}
	}

	debugID, _ := ctx.Value(DebugDirContextKey).(string)
	if debugID == "" {
		debugID = utils.GenerateID()
	}

	debugDir := filepath.Join(DebugChunksDir, debugID)
	if err := os.MkdirAll(debugDir, 0755); err != nil {
		slog.ErrorContext(ctx, "Failed to create debug directory", "dir", debugDir, "error", err)
		return &StreamDebugger{}
	}

	filename := filepath.Join(debugDir, fmt.Sprintf("%s.log", provider))
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to open debug file", "file", filename, "error", err)
		return &StreamDebugger{}
	}

	slog.DebugContext(ctx, "Debug mode ON", "provider", provider, "file", filename)
	return &StreamDebugger{file: f}
}

// WriteJSON marshals v and appends it as one line.
func (d *StreamDebugger) WriteJSON(v any) {
	if d.file == nil || v == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to marshal debug packet", "error", err)
		return
	}
	d.WriteString(string(data))
}

// WriteString appends s as one line.
func (d *StreamDebugger) WriteString(s string) {
	if d.file == nil {
		return
	}
	if _, err := d.file.WriteString(s + "\n"); err != nil {
		slog.Warn("Failed to write to debug file", "error", err)
	}
}

// Close closes the debug file handle.
func (d *StreamDebugger) Close() {
	if d.file != nil {
		d.file.Close()
		d.file = nil
	}
}

// PruneDebugChunks removes turn folders under root whose ID timestamp is
// older than maxAge. Folders whose names are not IDs are left alone.
func PruneDebugChunks(root string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read debug directory: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !utils.IsOlderThan(e.Name(), maxAge) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			slog.Warn("Failed to remove debug folder", "dir", e.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
