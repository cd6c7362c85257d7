// Package audit appends one JSON line per bridge call to a daily journal file.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Entry is one journal line.
type Entry struct {
	TraceID   string
	Action    string
	Res       int
	Msg       string
	ID        string
	Status    string
	PaymentID string
	LatencyMs int64
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e Entry) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("trace_id", e.TraceID)
	enc.AddString("action", e.Action)
	enc.AddInt("res", e.Res)
	enc.AddString("msg", e.Msg)
	enc.AddString("id", e.ID)
	enc.AddString("status", e.Status)
	enc.AddString("payment_id", e.PaymentID)
	enc.AddInt64("latency_ms", e.LatencyMs)
	return nil
}

// EventOperation is the journal's message value for completed calls.
const EventOperation = "operation"

// FileName returns the journal file name for the day of t.
func FileName(t time.Time) string {
	return "mpqr_audit_" + t.Format("20060102") + ".jsonl"
}

// Recorder receives audit entries.
type Recorder interface {
	Record(e Entry) error
}

// Journal writes entries to <dir>/mpqr_audit_YYYYMMDD.jsonl, rolling to a new
// file when the day changes. It is safe for concurrent use.
type Journal struct {
	dir   string
	clock zapcore.Clock

	mu     sync.Mutex
	day    string
	file   *os.File
	logger *zap.Logger
}

// Option customizes a Journal.
type Option func(*Journal)

// WithClock overrides the time source used for file names and timestamps.
func WithClock(c zapcore.Clock) Option {
	return func(j *Journal) { j.clock = c }
}

// NewJournal creates dir if needed and returns a Journal writing into it.
func NewJournal(dir string, opts ...Option) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audit: creating %s: %w", dir, err)
	}
	j := &Journal{dir: dir, clock: zapcore.DefaultClock}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Path returns the file the next entry would be written to.
func (j *Journal) Path() string {
	return filepath.Join(j.dir, FileName(j.clock.Now()))
}

// Record appends e to today's journal.
func (j *Journal) Record(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.rotate(); err != nil {
		return err
	}
	j.logger.Info(EventOperation, zap.Inline(e))
	return j.logger.Sync()
}

func (j *Journal) rotate() error {
	day := j.clock.Now().Format("20060102")
	if j.logger != nil && day == j.day {
		return nil
	}
	if j.file != nil {
		_ = j.file.Close()
	}

	path := filepath.Join(j.dir, FileName(j.clock.Now()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("audit: opening %s: %w", path, err)
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		MessageKey:     "event",
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), zapcore.InfoLevel)

	j.file = f
	j.day = day
	j.logger = zap.New(core, zap.WithClock(j.clock))
	return nil
}

// Close releases the current journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	j.logger = nil
	return err
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(Entry) error { return nil }
