package command

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Pure text-processing helpers used by the pattern extractors. All of them
// are total: absence is reported through the ok return, never a panic.

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	personNameRe       = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)\b`)
	singleNameRe       = regexp.MustCompile(`\b([A-Z][a-z]{2,})\b`)
	propertyPrepRe     = regexp.MustCompile(`(?i)\b(?:at|in|for)\s+(?:the\s+)?([\w']+(?:\s+[\w']+){0,3}?\s+(?:villa|house|apartment|suite|property|cottage|bungalow))\b`)
	propertyBareRe     = regexp.MustCompile(`(?i)\b([\w']+(?:\s+[\w']+)?\s+(?:villa|house|apartment|suite|cottage|bungalow))\b`)
	guestCountRe       = regexp.MustCompile(`(?i)\b(\d+)\s+(?:guests?|people|persons?|pax)\b`)
	durationHoursRe    = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:hours?|hrs?)\b`)
	durationMinutesRe  = regexp.MustCompile(`(?i)\b(\d+)\s*(?:minutes?|mins?)\b`)
	timeMeridiemRe     = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	time24Re           = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	isoDateRe          = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashDateRe        = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	monthDayRe         = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?\b`)
	dayMonthRe         = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\.?(?:,?\s+(\d{4}))?\b`)
)

// nameStopwords are capitalized words that start sentences or name the
// domain rather than a person.
var nameStopwords = map[string]bool{
	"The": true, "Please": true, "Can": true, "Could": true, "Assign": true,
	"Send": true, "Create": true, "Delete": true, "Update": true, "Approve": true,
	"Book": true, "Villa": true, "House": true, "Monday": true, "Tuesday": true,
	"Wednesday": true, "Thursday": true, "Friday": true, "Saturday": true,
	"Sunday": true, "January": true, "February": true, "March": true,
	"April": true, "May": true, "June": true, "July": true, "August": true,
	"September": true, "October": true, "November": true, "December": true,
}

// ExtractEmail returns the first email address in the text.
func ExtractEmail(text string) (string, bool) {
	m := emailRe.FindString(text)
	return m, m != ""
}

// ExtractPersonName returns the first plausible person name: a run of two
// or more capitalized words, falling back to a single capitalized word that
// is neither the first word nor a known non-name.
func ExtractPersonName(text string) (string, bool) {
	if m := personNameRe.FindStringSubmatch(text); m != nil {
		parts := strings.Fields(m[1])
		if !nameStopwords[parts[0]] {
			return m[1], true
		}
	}
	for _, loc := range singleNameRe.FindAllStringSubmatchIndex(text, -1) {
		word := text[loc[2]:loc[3]]
		if loc[2] == 0 || nameStopwords[word] {
			continue
		}
		return word, true
	}
	return "", false
}

// ExtractPropertyName returns a property reference such as "Sunset Villa"
// or "the beach house", without the leading article.
func ExtractPropertyName(text string) (string, bool) {
	if m := propertyPrepRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := propertyBareRe.FindStringSubmatch(text); m != nil {
		name := strings.TrimSpace(m[1])
		if first := strings.Fields(name)[0]; strings.EqualFold(first, "the") || strings.EqualFold(first, "a") {
			name = strings.TrimSpace(name[len(first):])
		}
		return name, true
	}
	return "", false
}

// NormalizeDate converts a date expression to canonical YYYY-MM-DD form.
// Already-canonical input round-trips unchanged.
func NormalizeDate(s string, now time.Time) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	if m := isoDateRe.FindStringSubmatch(s); m != nil && m[0] == s {
		if _, err := time.Parse("2006-01-02", s); err == nil {
			return s, true
		}
		return "", false
	}

	switch strings.ToLower(s) {
	case "today":
		return now.Format("2006-01-02"), true
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format("2006-01-02"), true
	case "day after tomorrow":
		return now.AddDate(0, 0, 2).Format("2006-01-02"), true
	case "next week":
		return now.AddDate(0, 0, 7).Format("2006-01-02"), true
	}

	if d, ok := nextWeekday(strings.ToLower(strings.TrimPrefix(strings.ToLower(s), "next ")), now); ok {
		return d.Format("2006-01-02"), true
	}

	if m := slashDateRe.FindStringSubmatch(s); m != nil && m[0] == s {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return formatYMD(year, month, day)
	}

	if m := monthDayRe.FindStringSubmatch(s); m != nil {
		return monthNameDate(m[1], m[2], m[3], now)
	}
	if m := dayMonthRe.FindStringSubmatch(s); m != nil {
		return monthNameDate(m[2], m[1], m[3], now)
	}

	return "", false
}

// ExtractDate scans free text for the first date expression and normalizes
// it.
func ExtractDate(text string, now time.Time) (string, bool) {
	if m := isoDateRe.FindString(text); m != "" {
		return NormalizeDate(m, now)
	}
	if m := slashDateRe.FindString(text); m != "" {
		return NormalizeDate(m, now)
	}
	if m := monthDayRe.FindString(text); m != "" {
		return NormalizeDate(m, now)
	}
	if m := dayMonthRe.FindString(text); m != "" {
		return NormalizeDate(m, now)
	}

	lower := strings.ToLower(text)
	for _, kw := range []string{"day after tomorrow", "tomorrow", "today", "next week"} {
		if strings.Contains(lower, kw) {
			return NormalizeDate(kw, now)
		}
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if strings.Contains(lower, name) {
			return NormalizeDate(name, now)
		}
	}
	return "", false
}

// ExtractDateRange returns a start/end pair, defaulting to tomorrow and
// tomorrow+7 days when the text carries no usable dates.
func ExtractDateRange(text string, now time.Time) (string, string) {
	dates := allDates(text, now)

	switch len(dates) {
	case 0:
		start := now.AddDate(0, 0, 1)
		return start.Format("2006-01-02"), start.AddDate(0, 0, 7).Format("2006-01-02")
	case 1:
		start, _ := time.Parse("2006-01-02", dates[0])
		return dates[0], start.AddDate(0, 0, 7).Format("2006-01-02")
	default:
		a, b := dates[0], dates[1]
		if b < a {
			a, b = b, a
		}
		return a, b
	}
}

// ExtractGuestCount returns a guest count such as "4 guests".
func ExtractGuestCount(text string) (int, bool) {
	m := guestCountRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ExtractPriority maps priority keywords to urgent/high/medium/low.
func ExtractPriority(text string) (string, bool) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "urgent") || strings.Contains(lower, "asap") || strings.Contains(lower, "immediately"):
		return "urgent", true
	case strings.Contains(lower, "high priority") || strings.Contains(lower, "important"):
		return "high", true
	case strings.Contains(lower, "medium priority") || strings.Contains(lower, "normal priority"):
		return "medium", true
	case strings.Contains(lower, "low priority") || strings.Contains(lower, "whenever"):
		return "low", true
	}
	return "", false
}

// ExtractDurationMinutes converts "2 hours" or "45 minutes" to minutes.
func ExtractDurationMinutes(text string) (int, bool) {
	if m := durationHoursRe.FindStringSubmatch(text); m != nil {
		h, err := strconv.ParseFloat(m[1], 64)
		if err == nil && h > 0 {
			return int(h * 60), true
		}
	}
	if m := durationMinutesRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

// ExtractTimeOfDay returns the first time expression normalized to 24-hour
// HH:MM form ("3pm" -> "15:00").
func ExtractTimeOfDay(text string) (string, bool) {
	if m := timeMeridiemRe.FindStringSubmatch(text); m != nil {
		hour, err := strconv.Atoi(m[1])
		if err != nil || hour < 1 || hour > 12 {
			return "", false
		}
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if strings.EqualFold(m[3], "pm") && hour != 12 {
			hour += 12
		}
		if strings.EqualFold(m[3], "am") && hour == 12 {
			hour = 0
		}
		return fmt.Sprintf("%02d:%02d", hour, minute), true
	}
	if m := time24Re.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%02d:%02d", hour, minute), true
	}
	return "", false
}

// allDates collects every normalized date expression in the text, in order
// of first appearance, without duplicates. Mixed formats are interleaved by
// their position in the text, not grouped by format.
func allDates(text string, now time.Time) []string {
	type hit struct {
		pos  int
		date string
	}
	var hits []hit
	seen := map[string]bool{}
	for _, re := range []*regexp.Regexp{isoDateRe, slashDateRe, monthDayRe, dayMonthRe} {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if d, ok := NormalizeDate(text[loc[0]:loc[1]], now); ok && !seen[d] {
				seen[d] = true
				hits = append(hits, hit{pos: loc[0], date: d})
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	dates := make([]string, len(hits))
	for i, h := range hits {
		dates[i] = h.date
	}
	return dates
}

func nextWeekday(name string, now time.Time) (time.Time, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) != name {
			continue
		}
		days := (int(d) - int(now.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return now.AddDate(0, 0, days), true
	}
	return time.Time{}, false
}

func monthNameDate(monthName, dayStr, yearStr string, now time.Time) (string, bool) {
	month, ok := monthByName(strings.ToLower(monthName))
	if !ok {
		return "", false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return "", false
	}

	year := now.Year()
	if yearStr != "" {
		year, err = strconv.Atoi(yearStr)
		if err != nil {
			return "", false
		}
	}

	date, ok2 := checkYMD(year, month, day)
	if !ok2 {
		return "", false
	}
	// Year-less dates already behind us roll into next year.
	if yearStr == "" && date.Before(now.Truncate(24*time.Hour)) {
		date, ok2 = checkYMD(year+1, month, day)
		if !ok2 {
			return "", false
		}
	}
	return date.Format("2006-01-02"), true
}

func monthByName(name string) (int, bool) {
	months := map[string]int{
		"january": 1, "jan": 1, "february": 2, "feb": 2, "march": 3, "mar": 3,
		"april": 4, "apr": 4, "may": 5, "june": 6, "jun": 6, "july": 7, "jul": 7,
		"august": 8, "aug": 8, "september": 9, "sep": 9, "sept": 9,
		"october": 10, "oct": 10, "november": 11, "nov": 11, "december": 12, "dec": 12,
	}
	m, ok := months[name]
	return m, ok
}

func formatYMD(year, month, day int) (string, bool) {
	date, ok := checkYMD(year, month, day)
	if !ok {
		return "", false
	}
	return date.Format("2006-01-02"), true
}

func checkYMD(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1 {
		return time.Time{}, false
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day || int(date.Month()) != month {
		return time.Time{}, false
	}
	return date, true
}
