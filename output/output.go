// Package output persists detection events as an NDJSON stream and mirrors
// them to an OTLP logs endpoint when one is configured.
package output

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"

	"vigil/config"
	"vigil/detector"
	"vigil/logger"
	"vigil/netmon"
	"vigil/version"
)

const SchemaVersion = "1.1"

// Metrics summarizes a monitoring session. Written as the final record on
// Close.
type Metrics struct {
	StartTime          string `json:"start_time"`
	EndTime            string `json:"end_time"`
	ForbiddenApps      int    `json:"forbidden_apps"`
	AdvancedDetections int    `json:"advanced_detections"`
	NetworkDetections  int    `json:"network_detections"`
}

type record struct {
	SchemaVersion string      `json:"schema_version"`
	RecordType    string      `json:"record_type"`
	Timestamp     string      `json:"timestamp"`
	Payload       interface{} `json:"payload"`
}

// Writer is safe for use from concurrent scan goroutines.
type Writer struct {
	mu      sync.Mutex
	file    *os.File
	buf     *bufio.Writer
	metrics Metrics
	otel    *otelLogger
}

func New(cfg *config.Config) (*Writer, error) {
	f, err := os.OpenFile(cfg.OutputFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		file: f,
		buf:  bufio.NewWriterSize(f, 64*1024),
		metrics: Metrics{
			StartTime: time.Now().UTC().Format(time.RFC3339),
		},
	}

	otel, err := newOtelLogger(cfg)
	if err != nil {
		logger.Warnf("OTEL export disabled: %v", err)
	} else {
		w.otel = otel
	}

	w.write("session_start", map[string]interface{}{
		"version": version.Version,
	})
	return w, nil
}

// WriteForbiddenApp records a basic deny-list match.
func (w *Writer) WriteForbiddenApp(r detector.BasicResult) {
	w.mu.Lock()
	w.metrics.ForbiddenApps++
	w.mu.Unlock()
	w.write("forbidden_app", r)
}

// WriteAdvanced records a heuristic or exact-match advanced detection.
func (w *Writer) WriteAdvanced(r detector.AdvancedResult) {
	w.mu.Lock()
	w.metrics.AdvancedDetections++
	w.mu.Unlock()
	w.write("advanced_detection", r)
}

// WriteNetwork records a classified outbound connection.
func (w *Writer) WriteNetwork(r netmon.Result) {
	w.mu.Lock()
	w.metrics.NetworkDetections++
	w.mu.Unlock()
	w.write("network_detection", r)
}

// Close writes the session metrics record and releases the file and the
// OTEL exporter.
func (w *Writer) Close() {
	w.mu.Lock()
	w.metrics.EndTime = time.Now().UTC().Format(time.RFC3339)
	metrics := w.metrics
	w.mu.Unlock()

	w.write("metrics", metrics)

	w.mu.Lock()
	_ = w.buf.Flush()
	_ = w.file.Sync()
	_ = w.file.Close()
	w.mu.Unlock()

	if w.otel != nil {
		w.otel.Shutdown()
	}
}

func (w *Writer) write(recordType string, payload interface{}) {
	rec := record{
		SchemaVersion: SchemaVersion,
		RecordType:    recordType,
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Payload:       payload,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		logger.Debugf("Could not encode %s record: %v", recordType, err)
		return
	}

	w.mu.Lock()
	_, _ = w.buf.Write(data)
	_ = w.buf.WriteByte('\n')
	_ = w.buf.Flush()
	w.mu.Unlock()

	if w.otel != nil {
		w.otel.Emit(recordType, payload)
	}
}
