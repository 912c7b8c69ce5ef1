// Package perfmetrics appends per-download performance records to a CSV file
// for later comparison of single-stream and segmented runs.
package perfmetrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"
)

// DefaultLogFile is where records land when no path is configured.
const DefaultLogFile = "perf_metrics.csv"

// Record is one completed (or failed) download.
type Record struct {
	Mode           string // "single" or "segmented"
	FileName       string
	FileSizeMB     float64
	Segments       int
	ThroughputMBps float64
	TimeSec        float64
	Retries        int64
	Status         string // "ok" or "failed"
}

var header = []string{
	"timestamp", "mode", "file", "size_mb", "segments",
	"throughput_mbps", "time_sec", "retries", "status",
}

// Log appends rec to the CSV at path, writing the header first when the file
// is new or empty.
func Log(path string, rec Record) error {
	if path == "" {
		path = DefaultLogFile
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open metrics log: %v", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat metrics log: %v", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write metrics header: %v", err)
		}
	}

	row := []string{
		time.Now().Format(time.RFC3339),
		rec.Mode,
		rec.FileName,
		fmt.Sprintf("%.2f", rec.FileSizeMB),
		fmt.Sprintf("%d", rec.Segments),
		fmt.Sprintf("%.2f", rec.ThroughputMBps),
		fmt.Sprintf("%.2f", rec.TimeSec),
		fmt.Sprintf("%d", rec.Retries),
		rec.Status,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write metrics record: %v", err)
	}
	w.Flush()
	return w.Error()
}
