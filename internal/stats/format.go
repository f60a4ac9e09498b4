package stats

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/catalog"
	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/ratio"
)

const bytesPerGB = 1 << 30

// RunTime accumulates run lengths in 100ns ticks.
type RunTime struct {
	Ticks int64
}

// Add adds ticks, ignoring unknown run times.
func (r *RunTime) Add(ticks *int64) {
	if ticks != nil && *ticks > 0 {
		r.Ticks += *ticks
	}
}

// Parts splits the run time into whole days, hours and minutes.
func (r RunTime) Parts() (days, hours, minutes int64) {
	total := r.Ticks / (60 * catalog.TicksPerSecond)
	return total / (24 * 60), total / 60 % 24, total % 60
}

// String renders "2 days 3 hours 15 minutes", omitting zero parts.
func (r RunTime) String() string {
	d, h, m := r.Parts()
	var parts []string
	if d > 0 {
		parts = append(parts, plural(d, "day"))
	}
	if h > 0 {
		parts = append(parts, plural(h, "hour"))
	}
	if m > 0 || len(parts) == 0 {
		parts = append(parts, plural(m, "minute"))
	}
	return strings.Join(parts, " ")
}

// cells renders the days, hours and minutes as table cells.
func (r RunTime) cells() string {
	d, h, m := r.Parts()
	return fmt.Sprintf("<td>%d</td><td>%d</td><td>%d</td>", d, h, m)
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.FormatInt(n, 10) + " " + unit + "s"
}

// clock renders ticks as hh:mm:ss, hours wrapping at a day.
func clock(ticks int64) string {
	secs := ticks / catalog.TicksPerSecond
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600%24, secs/60%60, secs%60)
}

// longClock renders ticks as "N days and hh:mm:ss", dropping the day part
// below one day.
func longClock(ticks int64) string {
	days := ticks / catalog.TicksPerSecond / 86400
	if days == 0 {
		return clock(ticks)
	}
	return plural(days, "day") + " and " + clock(ticks)
}

// monthsAgo renders the distance between t and now in calendar months as
// "N years and M months ago".
func monthsAgo(t, now time.Time) string {
	months := (now.Year()-t.Year())*12 + int(now.Month()) - int(t.Month())
	if months < 0 {
		months = 0
	}
	s := plural(int64(months/12), "year")
	if m := months % 12; m > 0 {
		s += " and " + plural(int64(m), "month")
	}
	return s + " ago"
}

// daysAgo renders whole days between t and now, or "Today".
func daysAgo(t, now time.Time) string {
	days := int64(now.Sub(t).Hours() / 24)
	if days <= 0 {
		return "Today"
	}
	return plural(days, "day") + " ago"
}

func gigabytes(bytes int64) string {
	return fmt.Sprintf("%.1f Gb", float64(bytes)/bytesPerGB)
}

func kbps(bitsPerSecond int64) string {
	return fmt.Sprintf("%d Kbps", int64(math.Round(float64(bitsPerSecond)/1000)))
}

func rating(r float64) string {
	return decimal(ratio.Round1(r)) + " / 10"
}

func decimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func watchedLine(count int, percent float64) string {
	return fmt.Sprintf("%d (%s%%)", count, decimal(percent))
}

func lastSeenLine(name string, at time.Time) string {
	return name + " - " + at.Format("1/2/2006")
}

// resolution buckets a video width into a display quality.
func resolution(width *int) string {
	if width == nil {
		return "Resolution Not Available"
	}
	w := *width
	switch {
	case w < 1200:
		return "SD"
	case w <= 1280:
		return "720p"
	case w <= 1920:
		return "1080p"
	case w <= 3840:
		return "4K"
	case w <= 7680:
		return "8K"
	default:
		return "Resolution Not Available"
	}
}

func codec(m catalog.Media) string {
	if s, ok := m.VideoStream(); ok && s.Codec != "" {
		return s.Codec
	}
	return "Unknown"
}

func episodeCode(season, index *int) string {
	return fmt.Sprintf("S%02d:E%02d", deref(season), deref(index))
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
