package report

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iaserrat/connwatch/internal/logging"
	"github.com/iaserrat/connwatch/internal/metrics"
)

const DefaultInterval = 300 * time.Second

// Reporter drains the aggregator on a fixed cadence and renders each
// non-empty snapshot to the sink. It never blocks the sampling side;
// the two only meet inside the aggregator's critical section.
type Reporter struct {
	agg      *metrics.Aggregator
	sink     *Sink
	interval time.Duration
	log      *logrus.Logger
	events   *logging.Logger
}

func NewReporter(agg *metrics.Aggregator, sink *Sink, interval time.Duration, log *logrus.Logger, events *logging.Logger) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Reporter{
		agg:      agg,
		sink:     sink,
		interval: interval,
		log:      log,
		events:   events,
	}
}

// Run flushes every interval until ctx is cancelled. A failed flush is
// logged and the loop keeps going; the next interval retries with
// whatever has accumulated since.
func (r *Reporter) Run(ctx context.Context) {
	for {
		timer := time.NewTimer(r.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := r.Flush(time.Now()); err != nil {
			r.log.Errorf("report flush: %v", err)
		}
	}
}

// Flush atomically drains the aggregator and appends one row per
// endpoint to the sink. An empty drain writes nothing and is not an
// error.
func (r *Reporter) Flush(now time.Time) error {
	snap := r.agg.SnapshotAndReset()
	if len(snap) == 0 {
		return nil
	}

	path, rows, err := r.sink.Append(now, snap)
	if err != nil {
		return err
	}

	var attempts uint64
	for _, c := range snap {
		attempts += c.Attempts
	}

	r.log.Infof("statistics logged to %s (%d rows, %d attempts)", path, rows, attempts)

	if r.events != nil {
		_ = r.events.Emit(&logging.ReportFlush{
			BaseEvent: logging.BaseEvent{Type: "report_flush"},
			Path:      path,
			Rows:      rows,
			Attempts:  attempts,
		})
	}

	return nil
}
