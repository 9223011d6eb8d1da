package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/iaserrat/connwatch/internal/metrics"
	"github.com/iaserrat/connwatch/internal/probe"
)

const (
	timestampFormat = "2006-01-02 15:04:05"
	timestampWidth  = 19
	serviceWidth    = 20
	minColumnWidth  = 6
)

// Sink appends aggregate rows to a per-day fixed-width report file.
// The column layout is a stable contract; scraping tooling depends on it.
type Sink struct {
	dir     string
	labels  map[probe.Endpoint]string
	columns []string
	widths  []int
}

func NewSink(dir string, labels map[probe.Endpoint]string, buckets []metrics.Bucket) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	var columns []string
	for _, b := range buckets {
		columns = append(columns, "conn "+b.Label)
	}
	for _, b := range buckets {
		columns = append(columns, "dns "+b.Label)
	}
	columns = append(columns, "dns failed", "conn failed", "total")

	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
		if widths[i] < minColumnWidth {
			widths[i] = minColumnWidth
		}
	}

	return &Sink{
		dir:     dir,
		labels:  labels,
		columns: columns,
		widths:  widths,
	}, nil
}

// Path returns the report file path for the given day.
func (s *Sink) Path(now time.Time) string {
	return filepath.Join(s.dir, "conn_stats_"+now.Format("20060102")+".log")
}

// Append writes one row per endpoint in the snapshot, sorted by service
// label, to the day's report file. A header is written first when the
// file is fresh; a failed header-presence check degrades silently to a
// headerless append. Returns the file path and the number of rows
// written. An empty snapshot writes nothing.
func (s *Sink) Append(now time.Time, snap map[probe.Endpoint]metrics.Counters) (string, int, error) {
	path := s.Path(now)
	if len(snap) == 0 {
		return path, 0, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return path, 0, fmt.Errorf("open report file: %w", err)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Size() == 0 {
		// best effort; a failure here just yields a headerless file
		_, _ = f.WriteString(s.header())
	}

	type row struct {
		label string
		c     metrics.Counters
	}
	rows := make([]row, 0, len(snap))
	for ep, c := range snap {
		rows = append(rows, row{label: s.labelFor(ep), c: c})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].label < rows[j].label })

	ts := now.Format(timestampFormat)
	for _, r := range rows {
		if _, err := f.WriteString(s.formatRow(ts, r.label, r.c)); err != nil {
			return path, 0, fmt.Errorf("write report row: %w", err)
		}
	}

	return path, len(rows), nil
}

func (s *Sink) labelFor(ep probe.Endpoint) string {
	if label, ok := s.labels[ep]; ok {
		return label
	}
	return ep.Addr()
}

func (s *Sink) header() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-*s | %-*s", timestampWidth, "Timestamp", serviceWidth, "Service")
	for i, c := range s.columns {
		fmt.Fprintf(&b, " | %*s", s.widths[i], c)
	}
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("-", b.Len()-1))
	b.WriteByte('\n')
	return b.String()
}

func (s *Sink) formatRow(ts string, label string, c metrics.Counters) string {
	values := make([]uint64, 0, len(s.columns))
	values = append(values, c.Connect.Buckets...)
	values = append(values, c.DNS.Buckets...)
	values = append(values, c.DNS.Failures, c.Connect.Failures, c.Attempts)

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s | %-*s", timestampWidth, ts, serviceWidth, label)
	for i, v := range values {
		fmt.Fprintf(&b, " | %*d", s.widths[i], v)
	}
	b.WriteByte('\n')
	return b.String()
}
