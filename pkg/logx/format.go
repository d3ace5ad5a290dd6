package logx

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Record is one log event handed to a Formatter.
type Record struct {
	Time   time.Time
	Level  Level
	Msg    string
	Fields Fields
	Err    error
}

// Formatter renders a Record into the bytes written to the sink, including
// the trailing newline.
type Formatter interface {
	Format(r Record) []byte
}

// JSONFormatter emits one JSON object per line, the format shipped to
// production log collectors.
type JSONFormatter struct{}

func (JSONFormatter) Format(r Record) []byte {
	payload := make(map[string]interface{}, len(r.Fields)+4)
	payload["time"] = r.Time.Format(time.RFC3339Nano)
	payload["level"] = r.Level.String()
	payload["msg"] = r.Msg
	if r.Err != nil {
		payload["error"] = r.Err.Error()
	}
	for k, v := range r.Fields {
		payload[k] = v
	}

	out, err := json.Marshal(payload)
	if err != nil {
		// A field value that cannot marshal should not lose the line.
		out, _ = json.Marshal(map[string]string{
			"time":  r.Time.Format(time.RFC3339Nano),
			"level": r.Level.String(),
			"msg":   r.Msg,
		})
	}
	return append(out, '\n')
}

// ConsoleFormatter emits a human-readable line for local development, with
// fields sorted so repeated runs diff cleanly.
type ConsoleFormatter struct{}

func (ConsoleFormatter) Format(r Record) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", r.Time.Format("15:04:05.000"), r.Level, r.Msg)

	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, r.Fields[k])
	}
	if r.Err != nil {
		fmt.Fprintf(&b, " error=%q", r.Err.Error())
	}
	b.WriteByte('\n')
	return []byte(b.String())
}
