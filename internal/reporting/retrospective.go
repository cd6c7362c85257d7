// Package reporting summarizes audit journals into retrospective reports.
package reporting

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Result codes counted by the report. They mirror the bridge result codes.
const (
	resOK       = 0
	resBusiness = 2
	resHTTP     = 5
)

// LogEntry is one journal line.
type LogEntry struct {
	Timestamp time.Time `json:"ts"`
	Event     string    `json:"event"`
	TraceID   string    `json:"trace_id"`
	Action    string    `json:"action"`
	Res       int       `json:"res"`
	Msg       string    `json:"msg"`
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	PaymentID string    `json:"payment_id"`
	LatencyMs int64     `json:"latency_ms"`
}

// RetrospectiveReport summarizes bridge activity over a set of journal entries.
type RetrospectiveReport struct {
	TotalCalls         int
	Successful         int
	BusinessRejections int            // res=2
	Failures           int            // every other non-zero code
	ProviderHTTPErrors int            // res=5, a subset of Failures
	ActionUsage        map[string]int // calls per action code
	ResultBreakdown    map[int]int    // calls per result code
	AverageLatency     time.Duration
	DateFrom           time.Time
	DateTo             time.Time
	ProcessingDuration time.Duration // span covered by the entries
}

// ReadEntries parses a JSON-lines journal. Blank lines are skipped; a
// malformed line is an error naming its line number.
func ReadEntries(r io.Reader) ([]LogEntry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var entries []LogEntry
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			return nil, fmt.Errorf("reporting: line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reporting: reading journal: %w", err)
	}
	return entries, nil
}

// RetrospectiveReporter generates retrospective reports from log entries.
type RetrospectiveReporter struct{}

// NewRetrospectiveReporter creates a new RetrospectiveReporter.
func NewRetrospectiveReporter() *RetrospectiveReporter {
	return &RetrospectiveReporter{}
}

// GenerateRetrospective analyzes entries and produces a RetrospectiveReport.
func (rr *RetrospectiveReporter) GenerateRetrospective(logs []LogEntry) (*RetrospectiveReport, error) {
	report := &RetrospectiveReport{
		ActionUsage:     make(map[string]int),
		ResultBreakdown: make(map[int]int),
	}
	if len(logs) == 0 {
		return report, nil
	}

	var latencyTotal int64
	for i, log := range logs {
		report.TotalCalls++
		latencyTotal += log.LatencyMs

		if i == 0 || log.Timestamp.Before(report.DateFrom) {
			report.DateFrom = log.Timestamp
		}
		if i == 0 || log.Timestamp.After(report.DateTo) {
			report.DateTo = log.Timestamp
		}

		if action := strings.ToUpper(strings.TrimSpace(log.Action)); action != "" {
			report.ActionUsage[action]++
		}
		report.ResultBreakdown[log.Res]++

		switch log.Res {
		case resOK:
			report.Successful++
		case resBusiness:
			report.BusinessRejections++
		default:
			report.Failures++
			if log.Res == resHTTP {
				report.ProviderHTTPErrors++
			}
		}
	}

	report.AverageLatency = time.Duration(latencyTotal/int64(report.TotalCalls)) * time.Millisecond
	report.ProcessingDuration = report.DateTo.Sub(report.DateFrom)
	return report, nil
}

// Format writes a plain-text rendering of the report.
func (r *RetrospectiveReport) Format(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Calls:               %d\n", r.TotalCalls)
	fmt.Fprintf(&b, "Successful:          %d\n", r.Successful)
	fmt.Fprintf(&b, "Business rejections: %d\n", r.BusinessRejections)
	fmt.Fprintf(&b, "Failures:            %d (provider HTTP errors: %d)\n", r.Failures, r.ProviderHTTPErrors)
	fmt.Fprintf(&b, "Average latency:     %s\n", r.AverageLatency)
	if r.TotalCalls > 0 {
		fmt.Fprintf(&b, "Window:              %s .. %s (%s)\n",
			r.DateFrom.Format(time.RFC3339), r.DateTo.Format(time.RFC3339), r.ProcessingDuration)
	}

	if len(r.ActionUsage) > 0 {
		b.WriteString("Actions:\n")
		actions := make([]string, 0, len(r.ActionUsage))
		for a := range r.ActionUsage {
			actions = append(actions, a)
		}
		sort.Strings(actions)
		for _, a := range actions {
			fmt.Fprintf(&b, "  %-3s %d\n", a, r.ActionUsage[a])
		}
	}

	if len(r.ResultBreakdown) > 0 {
		b.WriteString("Results:\n")
		codes := make([]int, 0, len(r.ResultBreakdown))
		for c := range r.ResultBreakdown {
			codes = append(codes, c)
		}
		sort.Ints(codes)
		for _, c := range codes {
			fmt.Fprintf(&b, "  res=%d %d\n", c, r.ResultBreakdown[c])
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
