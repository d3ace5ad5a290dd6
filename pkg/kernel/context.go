package kernel

import "time"

// ============================================================================
// Context Keys - claves para context.Context
// ============================================================================

type ContextKey string

const (
	// TraceIDKey is the key under which the client transport stores a
	// per-refresh-attempt correlation ID; the same ID is sent as the
	// X-Request-Id header, so a refresh attempt can be followed from the
	// transport's log lines into operator logs.
	TraceIDKey ContextKey = "trace_id"
)

// ============================================================================
// Millis - epoch-millisecond timestamps
// ============================================================================

// Millis is an absolute instant expressed as milliseconds since the Unix
// epoch, the wire format every timestamp in an identity envelope uses.
type Millis int64

// FromTime converts a time.Time to Millis.
func FromTime(t time.Time) Millis {
	return Millis(t.UnixMilli())
}

// Time converts Millis back to a time.Time in UTC.
func (m Millis) Time() time.Time {
	return time.UnixMilli(int64(m)).UTC()
}

// Before reports whether m occurs strictly before other.
func (m Millis) Before(other Millis) bool { return m < other }

// After reports whether m occurs strictly after other.
func (m Millis) After(other Millis) bool { return m > other }

// secondsEpochCeiling is the rough boundary below which a raw numeric
// timestamp is almost certainly seconds-since-epoch rather than
// milliseconds-since-epoch: any millisecond timestamp for a date after
// 2001 exceeds it.
const secondsEpochCeiling = 1_000_000_000_000

// NormalizeMillis converts a raw timestamp that may have been serialized as
// either whole seconds or whole milliseconds since the epoch into Millis,
// by magnitude. The refresh endpoint has historically sent refresh_expires
// in seconds while the other two timestamps are milliseconds; normalizing
// every field the same way keeps the Classifier from needing to know which
// fields are affected.
func NormalizeMillis(raw int64) Millis {
	if raw != 0 && raw < secondsEpochCeiling {
		return Millis(raw * 1000)
	}
	return Millis(raw)
}
