package logging

// BaseEvent carries the fields stamped onto every record.
type BaseEvent struct {
	TSUTC         string `json:"ts_utc"`
	TSUnixMS      int64  `json:"ts_unix_ms"`
	Seq           uint64 `json:"seq"`
	Type          string `json:"type"`
	Target        string `json:"target,omitempty"`
	SchemaVersion int    `json:"schema_version"`
	ToolName      string `json:"tool_name"`
	ToolVersion   string `json:"tool_version"`
	HostID        string `json:"host_id"`
}

func (b *BaseEvent) Base() *BaseEvent {
	return b
}

// Emittable is any record rooted in a BaseEvent.
type Emittable interface {
	Base() *BaseEvent
}

// ProbeFailure records one failed probe phase for one target.
type ProbeFailure struct {
	BaseEvent
	Phase string `json:"phase"` // "dns" or "connect"
	Err   string `json:"err"`
}

// ReportFlush records one aggregate flush to the report sink.
type ReportFlush struct {
	BaseEvent
	Path     string `json:"path"`
	Rows     int    `json:"rows"`
	Attempts uint64 `json:"attempts"`
}
