// Package extract pulls structured fields out of free-form user utterances:
// contact details, a normalized appointment time and satisfaction ratings.
// Best-effort by design; a miss is never an error.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Fields holds whatever could be extracted from one utterance.
type Fields struct {
	Email  string
	Phone  string
	When   *time.Time // normalized UTC
	Rating int        // 1..5, 0 when absent
}

// HasContact reports whether a lead-worthy contact field was found.
func (f Fields) HasContact() bool {
	return f.Email != "" || f.Phone != ""
}

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// Hungarian numbers (+36/06 prefixed) and generic international forms.
	phoneRe = regexp.MustCompile(`(?:\+?36|06)[ \-/]?(?:\d{1,2})[ \-/]?\d{3}[ \-/]?\d{3,4}|\+\d{1,3}[ \-]?\d{2,4}[ \-]?\d{3}[ \-]?\d{3,4}`)

	timeRe      = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	hourWordRe  = regexp.MustCompile(`\b(\d{1,2})\s*óra(?:kor|ra|kkor)?\b`)
	ratingDigRe = regexp.MustCompile(`(?:^|[^\d])([1-5])(?:[^\d]|$)`)
)

var weekdays = map[string]time.Weekday{
	"hétfő":     time.Monday,
	"hetfo":     time.Monday,
	"kedd":      time.Tuesday,
	"szerda":    time.Wednesday,
	"csütörtök": time.Thursday,
	"csutortok": time.Thursday,
	"péntek":    time.Friday,
	"pentek":    time.Friday,
	"szombat":   time.Saturday,
	"vasárnap":  time.Sunday,
	"vasarnap":  time.Sunday,
}

var ratingWords = map[string]int{
	"egyes":  1,
	"kettes": 2,
	"kettő":  2,
	"hármas": 3,
	"három":  3,
	"négyes": 4,
	"négy":   4,
	"ötös":   5,
	"öt":     5,
}

// Extract scans text for contact info, a date/time expression and a rating
// mention. Relative expressions resolve against now; results are UTC.
func Extract(text string, now time.Time) Fields {
	f := Fields{}

	f.Email = emailRe.FindString(text)
	f.Phone = strings.TrimSpace(phoneRe.FindString(text))

	if when, ok := parseWhen(text, now); ok {
		f.When = &when
	}

	f.Rating = parseRating(text)
	return f
}

// parseWhen resolves "ma"/"holnap"/weekday expressions plus an optional
// clock time. A bare time expression counts as today; a date word without a
// time defaults to 09:00.
func parseWhen(text string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(text)

	day := now
	haveDay := false
	switch {
	case strings.Contains(lower, "holnapután"), strings.Contains(lower, "holnaputan"):
		day = now.AddDate(0, 0, 2)
		haveDay = true
	case strings.Contains(lower, "holnap"):
		day = now.AddDate(0, 0, 1)
		haveDay = true
	case containsWord(lower, "ma"):
		haveDay = true
	default:
		for word, wd := range weekdays {
			if strings.Contains(lower, word) {
				day = nextWeekday(now, wd)
				haveDay = true
				break
			}
		}
	}

	hour, minute, haveTime := parseClock(lower)
	if !haveDay && !haveTime {
		return time.Time{}, false
	}
	if !haveTime {
		hour, minute = 9, 0
	}

	resolved := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
	return resolved.UTC(), true
}

func parseClock(lower string) (hour, minute int, ok bool) {
	if m := timeRe.FindStringSubmatch(lower); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		if h < 24 && min < 60 {
			return h, min, true
		}
	}
	if m := hourWordRe.FindStringSubmatch(lower); m != nil {
		h, _ := strconv.Atoi(m[1])
		if h < 24 {
			return h, 0, true
		}
	}
	return 0, 0, false
}

func nextWeekday(now time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return now.AddDate(0, 0, days)
}

func parseRating(text string) int {
	lower := strings.ToLower(text)
	// Whole words only; "öt" hides inside verbs like "jött".
	for word, rating := range ratingWords {
		if containsWord(lower, word) {
			return rating
		}
	}
	// Standalone digits only; digits inside longer numbers (phone numbers,
	// times) don't count.
	stripped := timeRe.ReplaceAllString(lower, " ")
	stripped = phoneRe.ReplaceAllString(stripped, " ")
	if m := ratingDigRe.FindStringSubmatch(stripped); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

func containsWord(s, word string) bool {
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '?' || r == '!'
	}) {
		if f == word {
			return true
		}
	}
	return false
}
