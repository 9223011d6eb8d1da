package metrics

import "time"

// Bucket is one labelled latency range, inclusive of Min, exclusive of Max.
type Bucket struct {
	Label string
	Min   time.Duration
	Max   time.Duration
}

// FailureCeiling is the duration at or beyond which a measurement counts
// as a failure rather than a slow success. It is fixed at the top of the
// bucket partition and is authoritative even when the socket connect
// timeout is configured differently.
const FailureCeiling = 5 * time.Second

// DefaultBuckets partition [0, FailureCeiling) with no gaps or overlap.
var DefaultBuckets = []Bucket{
	{Label: "<1s", Min: 0, Max: time.Second},
	{Label: "1-5s", Min: time.Second, Max: 5 * time.Second},
}

// bucketIndex returns the index of the bucket containing d, or -1 when d
// falls outside the partition (at or past the ceiling, or negative).
func bucketIndex(buckets []Bucket, d time.Duration) int {
	for i, b := range buckets {
		if d >= b.Min && d < b.Max {
			return i
		}
	}
	return -1
}
