// Package clock provides the deterministic local time facts the chat
// orchestrator grounds time answers on. It never touches the network: truth
// comes from here, only the phrasing is delegated to the generator.
package clock

import (
	"fmt"
	"time"
)

type Format string

const (
	FormatFull Format = "full"
	FormatDate Format = "date"
	FormatTime Format = "time"
)

// Clock reports the current time. The interface exists so tests can pin it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func System() Clock { return systemClock{} }

// Fact is a formatted statement of the current date/time in a timezone.
type Fact struct {
	Timezone string
	Value    string
}

// Describe formats the clock's current time in the given IANA timezone.
// An empty or unknown timezone falls back to the local zone.
func Describe(c Clock, timezone string, format Format) Fact {
	now := c.Now()

	zone := "local"
	if len(timezone) > 0 {
		if loc, err := time.LoadLocation(timezone); err == nil {
			now = now.In(loc)
			zone = timezone
		}
	}

	var value string
	switch format {
	case FormatDate:
		value = now.Format("2006-01-02")
	case FormatTime:
		value = now.Format("15:04:05")
	default:
		value = now.Format("2006-01-02 15:04:05")
	}

	return Fact{Timezone: zone, Value: value}
}

// Sentence renders the fact the way prompts and fallback replies quote it.
func (f Fact) Sentence() string {
	return fmt.Sprintf("当前准确时间是：%s（%s时区）", f.Value, f.Timezone)
}
