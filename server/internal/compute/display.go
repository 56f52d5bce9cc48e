package compute

import (
	"fmt"
	"math"
	"time"
)

// Units reported by FormatRemaining.
const (
	UnitKg    = "kg"
	UnitTonne = "t"
)

// FormatRemaining picks the display unit for a remaining-input figure:
// tonnes when |kg| >= 1000, kilograms otherwise. The sign is kept.
func FormatRemaining(kg float64) (float64, string) {
	if math.Abs(kg) >= 1000 {
		return kg / 1000, UnitTonne
	}
	return kg, UnitKg
}

// FormatElapsed renders d as zero-padded HH:MM:SS. Negative durations render
// as 00:00:00.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}
