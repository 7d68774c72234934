package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyCycleID    = "cycle_id"
	KeyStage      = "stage"
	KeyOutcome    = "outcome"
	KeyBranch     = "branch"
	KeyDevice     = "device"
	KeyRemote     = "remote"
	KeyCommit     = "commit"
	KeyPath       = "path"
	KeyInterval   = "interval"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func CycleID(id string) slog.Attr     { return slog.String(KeyCycleID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func Branch(b string) slog.Attr       { return slog.String(KeyBranch, b) }
func Device(d string) slog.Attr       { return slog.String(KeyDevice, d) }
func Remote(r string) slog.Attr       { return slog.String(KeyRemote, r) }
func Commit(hash string) slog.Attr    { return slog.String(KeyCommit, hash) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Interval(i string) slog.Attr     { return slog.String(KeyInterval, i) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
