package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"darkermonitor/pkg/darkerdb"
)

// openFile is swapped in tests to simulate write failures.
var openFile = os.OpenFile

// HistoryTimeLayout is the YYYYMMDD_HHMMSS stamp used in history file names.
const HistoryTimeLayout = "20060102_150405"

// Writer persists market snapshots to the current-snapshot file and,
// on request, to timestamped history files.
type Writer struct {
	OutputFile string
	HistoryDir string
}

func NewWriter(outputFile, historyDir string) *Writer {
	return &Writer{
		OutputFile: outputFile,
		HistoryDir: historyDir,
	}
}

// Prepare creates the history directory and the parent of the output file.
func (w *Writer) Prepare() error {
	dirs := []string{filepath.Dir(w.OutputFile)}
	if w.HistoryDir != "" {
		dirs = append(dirs, w.HistoryDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteCurrent replaces the current-snapshot file with s.
// The file is swapped in by rename so readers never see a partial document.
func (w *Writer) WriteCurrent(s darkerdb.MarketSnapshot) error {
	data, err := Format(s)
	if err != nil {
		return err
	}

	dir := filepath.Dir(w.OutputFile)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.OutputFile)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, w.OutputFile); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", w.OutputFile, err)
	}
	return nil
}

// WriteHistory stores s under a name derived from t and returns the path.
// An existing history file is never overwritten.
func (w *Writer) WriteHistory(s darkerdb.MarketSnapshot, t time.Time) (string, error) {
	data, err := Format(s)
	if err != nil {
		return "", err
	}

	path := HistoryPath(w.HistoryDir, t)
	f, err := openFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create history file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// HistoryPath returns dir/market_data_<YYYYMMDD_HHMMSS>.json.
func HistoryPath(dir string, t time.Time) string {
	return filepath.Join(dir, "market_data_"+t.Format(HistoryTimeLayout)+".json")
}

// Format pretty-prints s with a two-space indent, keeping key order.
// Whitespace surrounding the document is dropped.
func Format(s darkerdb.MarketSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(s), "", "  "); err != nil {
		return nil, fmt.Errorf("indent snapshot: %w", err)
	}
	return buf.Bytes(), nil
}
