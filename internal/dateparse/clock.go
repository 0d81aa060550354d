package dateparse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hotboat/whatsapp-bot/internal/stringutil"
)

// Slots are the trip departure hours, ascending.
var Slots = []int{9, 12, 15, 18, 21}

const (
	firstSlot = 9
	lastSlot  = 21
)

// SnapHour maps an hour in 9..21 to the nearest departure slot. Ties go to
// the earlier slot. Hours outside 9..21 are rejected.
func SnapHour(h int) (int, bool) {
	if h < firstSlot || h > lastSlot {
		return 0, false
	}
	switch h {
	case 16:
		return 15, true
	case 10:
		return 9, true
	}
	best := Slots[0]
	for _, s := range Slots[1:] {
		if abs(s-h) < abs(best-h) {
			best = s
		}
	}
	return best, true
}

// IsSlot reports whether h is exactly a departure hour.
func IsSlot(h int) bool {
	for _, s := range Slots {
		if s == h {
			return true
		}
	}
	return false
}

// TimeLabel renders an hour as "09:00".
func TimeLabel(h int) string {
	return fmt.Sprintf("%02d:00", h)
}

const meridiem = `(a\.?\s?m\.?|p\.?\s?m\.?|hrs?\.?|horas?|h)?`

var (
	aLasRe      = regexp.MustCompile(`\ba\s+las?\s+(\d{1,2})(?:\s*[:.h]\s*(\d{2}))?\s*` + meridiem + `(?:\s|$|[,.!?])`)
	clockRe     = regexp.MustCompile(`\b(\d{1,2})\s*[:h]\s*(\d{2})\b\s*` + meridiem)
	suffixRe    = regexp.MustCompile(`\b(\d{1,2})\s*(a\.?\s?m\.?|p\.?\s?m\.?|hrs?\.?|horas?)(?:\s|$|[,.!?])`)
	afternoonRe = regexp.MustCompile(`\bde\s+la\s+(?:tarde|noche)\b`)
	bareNumRe   = regexp.MustCompile(`\b(\d{1,2})(?:\s*[:.,h]\s*(\d{1,2}))?\b`)
	amRe        = regexp.MustCompile(`(?:\d|\s|^)a\.?\s?m\.?(?:\s|$|[,!?])`)
	pmRe        = regexp.MustCompile(`(?:\d|\s|^)p\.?\s?m\.?(?:\s|$|[,!?])`)
)

// ExtractHour finds a time of day in a free-form message: "a las 9",
// "9:00", "15 hrs", "9am", "a las 6 de la tarde". It returns the hour on a
// 24h clock without snapping.
func ExtractHour(text string) (int, bool) {
	s := stringutil.Normalize(text)
	for _, re := range []*regexp.Regexp{aLasRe, clockRe, suffixRe} {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if hour, ok := applyMeridiem(atoi(m[1]), m[len(m)-1], afternoonRe.MatchString(s)); ok {
			return hour, true
		}
	}
	return 0, false
}

// ParseClock reads a reply to "¿qué horario prefieres?". A bare number is
// accepted. Minutes must be below 60.
func ParseClock(text string) (hour, minute int, ok bool) {
	s := stringutil.Normalize(text)
	m := bareNumRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	hour = atoi(m[1])
	if m[2] != "" {
		minute = atoi(m[2])
	}
	if minute >= 60 {
		return 0, 0, false
	}
	suffix := ""
	switch {
	case pmRe.MatchString(s):
		suffix = "pm"
	case amRe.MatchString(s):
		suffix = "am"
	}
	hour, ok = applyMeridiem(hour, suffix, afternoonRe.MatchString(s))
	if !ok {
		return 0, 0, false
	}
	return hour, minute, true
}

func applyMeridiem(hour int, suffix string, afternoon bool) (int, bool) {
	suffix = strings.NewReplacer(".", "", " ", "").Replace(suffix)
	switch {
	case suffix == "pm" || afternoon:
		if hour < 12 {
			hour += 12
		}
	case suffix == "am" && hour == 12:
		hour = 0
	}
	if hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}

var (
	partyCountRe = regexp.MustCompile(`\b(\d{1,2})\s*(?:personas?|pax|pasajeros?|adultos?|navegantes?)\b`)
	somosRe      = regexp.MustCompile(`\bsomos\s+(\d{1,2})\b`)
	paraRe       = regexp.MustCompile(`\bpara\s+(\d{1,2})\b(\s*[:/.h-]\s*\d|\s+de\s|\s*(?:am|pm|hrs?|horas?)\b)?`)
	firstNumRe   = regexp.MustCompile(`\b(\d{1,2})\b`)
)

// ExtractPartySize finds a headcount: "3 personas", "para tres", "somos 4".
// Written numbers are understood. The value is not range checked.
func ExtractPartySize(text string) (int, bool) {
	s := stringutil.DigitizeNumbers(stringutil.Normalize(text))
	if m := partyCountRe.FindStringSubmatch(s); m != nil {
		return atoi(m[1]), true
	}
	if m := somosRe.FindStringSubmatch(s); m != nil {
		return atoi(m[1]), true
	}
	for _, m := range paraRe.FindAllStringSubmatch(s, -1) {
		// "para 14 de noviembre", "para 9:00" and "para 9 hrs" are not headcounts.
		if m[2] == "" {
			return atoi(m[1]), true
		}
	}
	return 0, false
}

// FirstNumber returns the first one or two digit number in text, reading
// written numbers too. It serves replies to "¿para cuántas personas?".
func FirstNumber(text string) (int, bool) {
	s := stringutil.DigitizeNumbers(stringutil.Normalize(text))
	m := firstNumRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	return atoi(m[1]), true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
