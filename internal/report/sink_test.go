package report

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/iaserrat/connwatch/internal/metrics"
	"github.com/iaserrat/connwatch/internal/probe"
)

var testTime = time.Date(2025, 6, 3, 12, 30, 0, 0, time.UTC)

func counters(connBuckets, dnsBuckets []uint64, dnsFail, connFail, attempts uint64) metrics.Counters {
	return metrics.Counters{
		Attempts: attempts,
		DNS:      metrics.PhaseCounters{Buckets: dnsBuckets, Failures: dnsFail},
		Connect:  metrics.PhaseCounters{Buckets: connBuckets, Failures: connFail},
	}
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	ep := probe.Endpoint{Hostname: "svc-a.example.com", Port: 443}
	labels := map[probe.Endpoint]string{ep: "svc-a"}

	sink, err := NewSink(dir, labels, metrics.DefaultBuckets)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	snap := map[probe.Endpoint]metrics.Counters{
		ep: counters([]uint64{1, 1}, []uint64{2, 0}, 1, 1, 3),
	}

	for i := 0; i < 2; i++ {
		if _, _, err := sink.Append(testTime, snap); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	data, err := os.ReadFile(sink.Path(testTime))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header + separator + 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Timestamp") {
		t.Fatalf("first line is not the header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "---") {
		t.Fatalf("second line is not the separator: %q", lines[1])
	}
	if strings.HasPrefix(lines[2], "Timestamp") || strings.HasPrefix(lines[3], "Timestamp") {
		t.Fatalf("header written more than once")
	}
}

func TestRowsAreFixedWidth(t *testing.T) {
	dir := t.TempDir()
	ep := probe.Endpoint{Hostname: "svc-a.example.com", Port: 443}
	labels := map[probe.Endpoint]string{ep: "svc-a"}

	sink, err := NewSink(dir, labels, metrics.DefaultBuckets)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	snap := map[probe.Endpoint]metrics.Counters{
		ep: counters([]uint64{10, 2}, []uint64{11, 1}, 3, 4, 16),
	}
	if _, _, err := sink.Append(testTime, snap); err != nil {
		t.Fatalf("append: %v", err)
	}

	data, err := os.ReadFile(sink.Path(testTime))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	want := len(lines[0])
	for i, line := range lines {
		if len(line) != want {
			t.Fatalf("line %d width %d, want %d: %q", i, len(line), want, line)
		}
	}

	fields := strings.Split(lines[2], " | ")
	if len(fields) != 9 {
		t.Fatalf("row has %d columns, want 9: %q", len(fields), lines[2])
	}
	if strings.TrimSpace(fields[0]) != "2025-06-03 12:30:00" {
		t.Fatalf("timestamp column = %q", fields[0])
	}
	if strings.TrimSpace(fields[1]) != "svc-a" {
		t.Fatalf("service column = %q", fields[1])
	}

	// column order: conn buckets, dns buckets, dns failed, conn failed, total
	wantValues := []string{"10", "2", "11", "1", "3", "4", "16"}
	for i, w := range wantValues {
		if got := strings.TrimSpace(fields[i+2]); got != w {
			t.Fatalf("column %d = %q, want %q", i+2, got, w)
		}
	}
}

func TestRowsSortedByServiceLabel(t *testing.T) {
	dir := t.TempDir()
	epA := probe.Endpoint{Hostname: "z-host.example.com", Port: 443}
	epB := probe.Endpoint{Hostname: "a-host.example.com", Port: 443}
	labels := map[probe.Endpoint]string{epA: "alpha", epB: "zulu"}

	sink, err := NewSink(dir, labels, metrics.DefaultBuckets)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	snap := map[probe.Endpoint]metrics.Counters{
		epA: counters([]uint64{1, 0}, []uint64{1, 0}, 0, 0, 1),
		epB: counters([]uint64{1, 0}, []uint64{1, 0}, 0, 0, 1),
	}
	if _, _, err := sink.Append(testTime, snap); err != nil {
		t.Fatalf("append: %v", err)
	}

	data, err := os.ReadFile(sink.Path(testTime))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if !strings.Contains(lines[2], "alpha") {
		t.Fatalf("first row is not alpha: %q", lines[2])
	}
	if !strings.Contains(lines[3], "zulu") {
		t.Fatalf("second row is not zulu: %q", lines[3])
	}
}

func TestEmptySnapshotWritesNothing(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewSink(dir, nil, metrics.DefaultBuckets)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	path, rows, err := sink.Append(testTime, nil)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if rows != 0 {
		t.Fatalf("rows = %d, want 0", rows)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("report file created for empty snapshot")
	}
}

func TestUnlabelledEndpointFallsBackToAddr(t *testing.T) {
	dir := t.TempDir()
	ep := probe.Endpoint{Hostname: "nameless.example.com", Port: 9000}

	sink, err := NewSink(dir, nil, metrics.DefaultBuckets)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	snap := map[probe.Endpoint]metrics.Counters{
		ep: counters([]uint64{1, 0}, []uint64{1, 0}, 0, 0, 1),
	}
	if _, _, err := sink.Append(testTime, snap); err != nil {
		t.Fatalf("append: %v", err)
	}

	data, err := os.ReadFile(sink.Path(testTime))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "nameless.example.com:9000") {
		t.Fatalf("fallback label missing from report:\n%s", data)
	}
}
