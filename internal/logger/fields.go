package logger

import "log/slog"

// Standard field keys for structured logging across internal/hostserver and
// cmd/restatevm. Keep these consistent so logs stay queryable.
const (
	KeyTraceID      = "trace_id"
	KeySpanID       = "span_id"
	KeyInvocationID = "invocation_id"
	KeyDebugID      = "debug_id"
	KeyState        = "state"
	KeyEvent        = "event"
	KeyCommandIndex = "command_index"
	KeyEntryIndex   = "entry_index"
	KeyEntryType    = "entry_type"
	KeyEntryName    = "entry_name"
	KeyHandle       = "notification_handle"
	KeyErrorCode    = "error_code"
	KeyError        = "error"
	KeyDurationMs   = "duration_ms"
	KeyRemoteAddr   = "remote_addr"
	KeyContentType  = "content_type"
	KeyKeySpace     = "key"
)

func InvocationID(id string) slog.Attr { return slog.String(KeyInvocationID, id) }
func DebugID(id string) slog.Attr      { return slog.String(KeyDebugID, id) }
func State(s string) slog.Attr         { return slog.String(KeyState, s) }
func Event(s string) slog.Attr         { return slog.String(KeyEvent, s) }
func CommandIndex(i int64) slog.Attr   { return slog.Int64(KeyCommandIndex, i) }
func EntryIndex(i uint32) slog.Attr    { return slog.Any(KeyEntryIndex, i) }
func EntryType(s string) slog.Attr     { return slog.String(KeyEntryType, s) }
func EntryName(s string) slog.Attr     { return slog.String(KeyEntryName, s) }
func Handle(h uint32) slog.Attr        { return slog.Any(KeyHandle, h) }
func ErrorCode(code uint16) slog.Attr  { return slog.Any(KeyErrorCode, code) }

func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }
func ContentType(ct string) slog.Attr  { return slog.String(KeyContentType, ct) }
