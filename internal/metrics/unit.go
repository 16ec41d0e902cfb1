package metrics

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// Unit selects how chart values are scaled and labelled.
type Unit string

const (
	UnitRaw       Unit = "raw"
	UnitPercent   Unit = "percent"
	UnitMegabytes Unit = "megabytes"
	UnitBytes     Unit = "bytes"
)

// AllUnits returns the supported units.
func AllUnits() []Unit {
	return []Unit{UnitRaw, UnitPercent, UnitMegabytes, UnitBytes}
}

// ParseUnit validates a configured unit name. An empty name is raw.
func ParseUnit(s string) (Unit, error) {
	if s == "" {
		return UnitRaw, nil
	}
	u := Unit(strings.ToLower(s))
	for _, known := range AllUnits() {
		if u == known {
			return u, nil
		}
	}
	return UnitRaw, fmt.Errorf("unknown unit %q", s)
}

// Scale converts a raw reading into the unit's plotted magnitude.
func (u Unit) Scale(v float64) float64 {
	switch u {
	case UnitPercent:
		return v * 100
	case UnitMegabytes:
		return v / 1024 / 1024
	default:
		return v
	}
}

// Format renders a raw reading for legends and tables.
func (u Unit) Format(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	switch u {
	case UnitPercent:
		return fmt.Sprintf("%.2f %%", u.Scale(v))
	case UnitMegabytes:
		return fmt.Sprintf("%.1f MB", u.Scale(v))
	case UnitBytes:
		if v < 0 {
			return "-" + humanize.IBytes(uint64(-v))
		}
		return humanize.IBytes(uint64(v))
	default:
		return fmt.Sprintf("%.5g", v)
	}
}

// Axis returns the suffix shown next to the y axis.
func (u Unit) Axis() string {
	switch u {
	case UnitPercent:
		return "%"
	case UnitMegabytes:
		return "MB"
	case UnitBytes:
		return "B"
	default:
		return ""
	}
}
