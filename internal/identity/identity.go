// Package identity derives the stable device identity and its branch name.
package identity

import (
	"os"
	"strings"
)

// Identity is the stable token identifying the host device. All commits from
// one device accumulate on the branch derived from it.
type Identity string

// Unknown is the sentinel identity used when the host name cannot be
// determined. Devices in this degraded mode share the robot-unknown branch.
const Unknown Identity = "unknown"

const branchPrefix = "robot-"

// Resolve reads the host name once and returns the device identity. It never
// fails: any inability to determine a usable name yields Unknown, because a
// missing identity must not prevent an attempted sync.
func Resolve() Identity {
	host, err := os.Hostname()
	if err != nil {
		return Unknown
	}
	return From(host)
}

// From normalizes an explicitly configured identity. Empty or fully invalid
// input yields Unknown.
func From(raw string) Identity {
	s := sanitize(raw)
	if s == "" {
		return Unknown
	}
	return Identity(s)
}

// Branch returns the deterministic branch name for this identity.
func (i Identity) Branch() string {
	return branchPrefix + string(i)
}

func (i Identity) String() string { return string(i) }

// sanitize maps a raw host name onto a branch-safe token. Git ref components
// forbid spaces, "..", "~", "^", ":", "?", "*", "[" and a few more; anything
// outside a conservative allowed set becomes a dash.
func sanitize(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '.' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	// Refs may not begin or end with a dot, and a trailing ".lock" is
	// invalid. Trimming can expose another forbidden suffix, so repeat
	// until the token is stable.
	s := b.String()
	for {
		trimmed := strings.Trim(s, "-.")
		trimmed = strings.TrimSuffix(trimmed, ".lock")
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}
