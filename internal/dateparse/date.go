// Package dateparse resolves Spanish date and time phrases ("6 de noviembre",
// "el sábado", "mañana a las 9") into calendar dates and trip slot hours in
// the business time zone.
//
// All functions are pure: the caller passes the reference time, already in
// the business location. "Not found" is reported as a false boolean.
package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hotboat/whatsapp-bot/internal/stringutil"
)

// Source tells how a date was obtained.
type Source int

// Date sources, in resolution order.
const (
	SourceNone Source = iota
	SourceExplicit
	SourceRelative
	SourceWeekday
)

var monthNames = []string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// monthTokens lists full names before abbreviations so the alternation
// prefers the longest spelling.
var monthTokens = map[string]time.Month{
	"enero": time.January, "febrero": time.February, "marzo": time.March,
	"abril": time.April, "mayo": time.May, "junio": time.June,
	"julio": time.July, "agosto": time.August, "septiembre": time.September,
	"setiembre": time.September, "octubre": time.October,
	"noviembre": time.November, "diciembre": time.December,
	"ene": time.January, "feb": time.February, "mar": time.March,
	"abr": time.April, "may": time.May, "jun": time.June, "jul": time.July,
	"ago": time.August, "sept": time.September, "sep": time.September,
	"set": time.September, "oct": time.October, "nov": time.November,
	"dic": time.December,
}

const monthAlt = `enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|setiembre|octubre|noviembre|diciembre|ene|feb|mar|abr|may|jun|jul|ago|sept|sep|set|oct|nov|dic`

const weekdayAlt = `lunes|martes|miercoles|jueves|viernes|sabado|domingo`

var weekdayTokens = map[string]time.Weekday{
	"lunes": time.Monday, "martes": time.Tuesday, "miercoles": time.Wednesday,
	"jueves": time.Thursday, "viernes": time.Friday, "sabado": time.Saturday,
	"domingo": time.Sunday,
}

var (
	leadingWeekdayRe = regexp.MustCompile(`^(?:el\s+)?(?:` + weekdayAlt + `)\b[\s,]*`)
	weekdayRe        = regexp.MustCompile(`\b(` + weekdayAlt + `)\b`)

	yearSuffix = `(?:\s*,?\s*(?:de(?:l)?\s+)?(\d{4}))?`

	dayDeMonthRe = regexp.MustCompile(`\b(\d{1,2})\s+de\s+(` + monthAlt + `)\b` + yearSuffix)
	monthDayRe   = regexp.MustCompile(`\b(` + monthAlt + `)\s+(\d{1,2})\b` + yearSuffix)
	dayMonthRe   = regexp.MustCompile(`\b(\d{1,2})\s+(` + monthAlt + `)\b` + yearSuffix)
	numericRe    = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2}|\d{4}))?\b`)

	pasadoMananaRe = regexp.MustCompile(`\bpasado\s+manana\b`)
	mananaRe       = regexp.MustCompile(`\bmanana\b`)
	morningRe      = regexp.MustCompile(`\b(?:de|en|por)\s+la\s+manana\b`)
	hoyRe          = regexp.MustCompile(`\bhoy\b`)
)

// datePattern extracts (day, month, year) from a match; year is 0 when absent.
type datePattern struct {
	re      *regexp.Regexp
	extract func(m []string) (day int, month time.Month, year int)
}

// datePatterns are tried in order; the first that yields a valid date wins.
var datePatterns = []datePattern{
	{dayDeMonthRe, func(m []string) (int, time.Month, int) {
		return atoi(m[1]), monthTokens[m[2]], atoi(m[3])
	}},
	{monthDayRe, func(m []string) (int, time.Month, int) {
		return atoi(m[2]), monthTokens[m[1]], atoi(m[3])
	}},
	{dayMonthRe, func(m []string) (int, time.Month, int) {
		return atoi(m[1]), monthTokens[m[2]], atoi(m[3])
	}},
	{numericRe, func(m []string) (int, time.Month, int) {
		month := atoi(m[2])
		if month < 1 || month > 12 {
			return 0, 0, 0
		}
		year := atoi(m[3])
		if year > 0 && year < 100 {
			year += 2000
		}
		return atoi(m[1]), time.Month(month), year
	}},
}

// ResolveDate finds an explicit calendar date in text. Without a year the
// reference year is used, rolling to the next year only when the date falls
// strictly before today's calendar day. The result is midnight in now's
// location.
func ResolveDate(text string, now time.Time) (time.Time, bool) {
	s := stripLeadingWeekday(stringutil.Normalize(text))
	if s == "" {
		return time.Time{}, false
	}
	today := midnight(now)

	for _, p := range datePatterns {
		for _, m := range p.re.FindAllStringSubmatch(s, -1) {
			day, month, year := p.extract(m)
			if month == 0 {
				continue
			}
			explicitYear := year != 0
			if !explicitYear {
				year = today.Year()
			}
			d, ok := civilDate(year, month, day, now.Location())
			if !ok {
				continue
			}
			if !explicitYear && d.Before(today) {
				if d, ok = civilDate(year+1, month, day, now.Location()); !ok {
					continue
				}
			}
			return d, true
		}
	}
	return time.Time{}, false
}

// ContainsDate reports whether text holds an explicit date pattern, valid or
// not. It is the "bare date means availability" signal.
func ContainsDate(text string) bool {
	s := stringutil.Normalize(text)
	for _, p := range datePatterns {
		if p.re.MatchString(s) {
			return true
		}
	}
	return false
}

// ResolveRelative handles "hoy", "mañana" and "pasado mañana". "de la
// mañana" is a time of day and does not count.
func ResolveRelative(text string, now time.Time) (time.Time, bool) {
	s := stringutil.Normalize(text)
	today := midnight(now)
	switch {
	case pasadoMananaRe.MatchString(s):
		return today.AddDate(0, 0, 2), true
	case mananaRe.MatchString(morningRe.ReplaceAllString(s, " ")):
		return today.AddDate(0, 0, 1), true
	case hoyRe.MatchString(s):
		return today, true
	}
	return time.Time{}, false
}

// ResolveWeekday returns the next occurrence of the first weekday named in
// text. A weekday equal to today resolves to today.
func ResolveWeekday(text string, now time.Time) (time.Time, bool) {
	wd, ok := FindWeekday(text)
	if !ok {
		return time.Time{}, false
	}
	return NextWeekday(wd, now), true
}

// FindWeekday returns the first Spanish weekday named in text.
func FindWeekday(text string) (time.Weekday, bool) {
	m := weekdayRe.FindStringSubmatch(stringutil.Normalize(text))
	if m == nil {
		return 0, false
	}
	return weekdayTokens[m[1]], true
}

// NextWeekday returns midnight of the next day falling on wd, today included.
func NextWeekday(wd time.Weekday, now time.Time) time.Time {
	ahead := (int(wd) - int(now.Weekday()) + 7) % 7
	return midnight(now).AddDate(0, 0, ahead)
}

// FindDate resolves the most specific date in text: explicit dates first,
// then relative words, then weekday names.
func FindDate(text string, now time.Time) (time.Time, Source) {
	if d, ok := ResolveDate(text, now); ok {
		return d, SourceExplicit
	}
	if d, ok := ResolveRelative(text, now); ok {
		return d, SourceRelative
	}
	if d, ok := ResolveWeekday(text, now); ok {
		return d, SourceWeekday
	}
	return time.Time{}, SourceNone
}

// DateLabel renders d as "6 de noviembre 2025".
func DateLabel(d time.Time) string {
	return fmt.Sprintf("%d de %s %d", d.Day(), monthNames[d.Month()-1], d.Year())
}

// ISODate renders d as YYYY-MM-DD.
func ISODate(d time.Time) string {
	return d.Format(time.DateOnly)
}

// ParseISODate parses YYYY-MM-DD as midnight in loc.
func ParseISODate(s string, loc *time.Location) (time.Time, bool) {
	d, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func stripLeadingWeekday(s string) string {
	return strings.TrimSpace(leadingWeekdayRe.ReplaceAllString(s, ""))
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// civilDate rejects overflowing dates such as 31 de febrero.
func civilDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if d.Day() != day || d.Month() != month {
		return time.Time{}, false
	}
	return d, true
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
