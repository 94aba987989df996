package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyDocument   = "document"
	KeyPath       = "path"
	KeyTarget     = "target"
	KeyLevel      = "level"
	KeyCount      = "count"
	KeyCommand    = "command"
	KeyDir        = "dir"
	KeyExitCode   = "exit_code"
	KeyMode       = "mode"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Document(n string) slog.Attr     { return slog.String(KeyDocument, n) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Target(p string) slog.Attr       { return slog.String(KeyTarget, p) }
func Level(n int) slog.Attr           { return slog.Int(KeyLevel, n) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func Dir(d string) slog.Attr          { return slog.String(KeyDir, d) }
func ExitCode(code int) slog.Attr     { return slog.Int(KeyExitCode, code) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
