package lineprotocol

import (
	"fmt"
	"strings"
	"time"
)

// Precision is the time unit a timestamp is expressed in.
//
// PrecisionNone is the precision of an unresolved timestamp. It ranks below
// every real unit, so it never wins when precisions are combined.
type Precision uint8

// Supported precisions.
const (
	PrecisionNone Precision = iota
	Seconds
	Milliseconds
	Microseconds
	Nanoseconds
)

// DefaultPrecision is used when a caller does not ask for a specific unit.
const DefaultPrecision = Nanoseconds

// precisionInfo is the explicit rank and scale table. Ranks are independent
// of the constant declaration order above.
var precisionInfo = map[Precision]struct {
	rank  int
	scale int64 // nanoseconds per unit
	name  string
}{
	PrecisionNone: {rank: 0, scale: 0, name: "none"},
	Seconds:       {rank: 1, scale: int64(time.Second), name: "s"},
	Milliseconds:  {rank: 2, scale: int64(time.Millisecond), name: "ms"},
	Microseconds:  {rank: 3, scale: int64(time.Microsecond), name: "us"},
	Nanoseconds:   {rank: 4, scale: int64(time.Nanosecond), name: "ns"},
}

// ParsePrecision parses the short unit names used by InfluxDB's
// precision query parameter: "s", "ms", "us" (or "µs") and "ns".
//
// Returns ErrUnknownPrecision for anything else, including "".
func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s":
		return Seconds, nil
	case "ms":
		return Milliseconds, nil
	case "us", "µs":
		return Microseconds, nil
	case "ns":
		return Nanoseconds, nil
	default:
		return PrecisionNone, fmt.Errorf("%w: %q", ErrUnknownPrecision, s)
	}
}

// String returns the short unit name ("s", "ms", "us", "ns"), or "none".
func (p Precision) String() string {
	if info, ok := precisionInfo[p]; ok {
		return info.name
	}
	return fmt.Sprintf("Precision(%d)", uint8(p))
}

// Rank orders precisions from coarse to fine: none < s < ms < us < ns.
// Unknown values rank -1.
func (p Precision) Rank() int {
	if info, ok := precisionInfo[p]; ok {
		return info.rank
	}
	return -1
}

// IsResolved reports whether p is a real time unit.
func (p Precision) IsResolved() bool {
	return p.Rank() > 0
}

// FinerThan reports whether p ranks strictly above q.
func (p Precision) FinerThan(q Precision) bool {
	return p.Rank() > q.Rank()
}

// Duration returns the length of one unit, or 0 for PrecisionNone.
func (p Precision) Duration() time.Duration {
	return time.Duration(precisionInfo[p].scale)
}

// MarshalText implements encoding.TextMarshaler.
func (p Precision) MarshalText() ([]byte, error) {
	if !p.IsResolved() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPrecision, uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using ParsePrecision.
func (p *Precision) UnmarshalText(text []byte) error {
	parsed, err := ParsePrecision(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MaxPrecision returns whichever of a and b ranks higher.
func MaxPrecision(a, b Precision) Precision {
	if b.FinerThan(a) {
		return b
	}
	return a
}
