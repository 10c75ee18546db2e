package command

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/store"
)

// The pattern library: one registry entry per ActionTag pairing trigger
// patterns with a parameter extractor, static safety classification,
// business rules and an executor handler. Adding an action type means
// adding one entry here.

type extractFunc func(m []string, text string, now time.Time) (Params, string, bool)
type ruleFunc func(ctx context.Context, v *Validator, a CandidateAction, target *store.Document) []string
type handlerFunc func(ctx context.Context, x *Executor, a CandidateAction, ectx ExecutionContext) ExecutionResult

type patternEntry struct {
	re      *regexp.Regexp
	extract extractFunc
}

type actionSpec struct {
	Tag                  ActionTag
	Safety               SafetyLevel
	RequiresConfirmation bool
	SourceCollection     string
	Patterns             []patternEntry
	Rules                ruleFunc
	Handler              handlerFunc
}

var overrideRe = regexp.MustCompile(`(?i)\b(?:with\s+)?override\b`)

// assigneePlaceholders are "who" words that mean the caller wants the
// scorer to pick.
var assigneePlaceholders = map[string]bool{
	"someone": true, "anyone": true, "somebody": true, "staff": true,
	"a staff member": true, "available staff": true,
}

var registry = []actionSpec{
	{
		Tag:                  TagReassignStaff,
		Safety:               SafetyCaution,
		RequiresConfirmation: true,
		SourceCollection:     store.CollectionJobs,
		Patterns: []patternEntry{
			{
				re: regexp.MustCompile(`(?i)\breassign\s+job\s+([\w\-]+)\s+to\s+([a-zA-Z][a-zA-Z .'\-]*?)(?:[.,;]|$)`),
				extract: func(m []string, _ string, _ time.Time) (Params, string, bool) {
					p := ReassignStaffParams{JobID: m[1], StaffName: cleanName(m[2])}
					return p, p.JobID, p.StaffName != ""
				},
			},
			{
				re: regexp.MustCompile(`(?i)\breassign\s+([a-zA-Z][a-zA-Z .'\-]*?)\s+to\s+(?:job\s+)?([\w\-]+)`),
				extract: func(m []string, _ string, _ time.Time) (Params, string, bool) {
					p := ReassignStaffParams{StaffName: cleanName(m[1]), JobID: m[2]}
					return p, p.JobID, p.StaffName != ""
				},
			},
		},
		Rules:   rulesAssignStaff,
		Handler: execReassignStaff,
	},
	{
		Tag:                  TagAssignStaff,
		Safety:               SafetySafe,
		RequiresConfirmation: false,
		SourceCollection:     store.CollectionJobs,
		Patterns: []patternEntry{
			{
				re: regexp.MustCompile(`(?i)\bassign\s+([a-zA-Z][a-zA-Z .'\-]*?)\s+to\s+(?:job\s+)?([\w\-]+)`),
				extract: func(m []string, _ string, _ time.Time) (Params, string, bool) {
					name := cleanName(m[1])
					if assigneePlaceholders[strings.ToLower(name)] {
						name = ""
					}
					p := AssignStaffParams{StaffName: name, JobID: m[2]}
					return p, p.JobID, true
				},
			},
		},
		Rules:   rulesAssignStaff,
		Handler: execAssignStaff,
	},
	{
		Tag:                  TagApproveBooking,
		Safety:               SafetySafe,
		RequiresConfirmation: false,
		SourceCollection:     store.CollectionBookings,
		Patterns: []patternEntry{
			{
				re: regexp.MustCompile(`(?i)\bapprove\s+booking\s+([\w\-]+)`),
				extract: func(m []string, _ string, _ time.Time) (Params, string, bool) {
					p := ApproveBookingParams{BookingID: m[1]}
					return p, p.BookingID, true
				},
			},
		},
		Rules:   rulesApproveBooking,
		Handler: execApproveBooking,
	},
	{
		Tag:                  TagUpdateBooking,
		Safety:               SafetyCaution,
		RequiresConfirmation: true,
		SourceCollection:     store.CollectionBookings,
		Patterns: []patternEntry{
			{
				re: regexp.MustCompile(`(?i)\b(?:update|change|modify)\s+booking\s+([\w\-]+)`),
				extract: func(m []string, text string, now time.Time) (Params, string, bool) {
					p := UpdateBookingParams{BookingID: m[1]}
					if dates := allDates(text, now); len(dates) > 0 {
						p.CheckIn = dates[0]
						if len(dates) > 1 {
							p.CheckOut = dates[1]
							if p.CheckOut < p.CheckIn {
								p.CheckIn, p.CheckOut = p.CheckOut, p.CheckIn
							}
						}
					}
					if guests, ok := ExtractGuestCount(text); ok {
						p.Guests = guests
					}
					return p, p.BookingID, true
				},
			},
		},
		Rules:   rulesUpdateBooking,
		Handler: execUpdateBooking,
	},
	{
		Tag:                  TagCreateBooking,
		Safety:               SafetyCaution,
		RequiresConfirmation: true,
		SourceCollection:     store.CollectionBookings,
		Patterns: []patternEntry{
			{
				re:      regexp.MustCompile(`(?i)\b(?:create|add|new)\s+(?:a\s+)?booking\b`),
				extract: extractCreateBooking,
			},
			{
				re:      regexp.MustCompile(`(?i)\bbook\s+(?:a\s+)?(?:stay|room|the\s+\w+)\b`),
				extract: extractCreateBooking,
			},
		},
		Rules:   nil,
		Handler: execCreateBooking,
	},
	{
		Tag:                  TagCreateJob,
		Safety:               SafetySafe,
		RequiresConfirmation: false,
		SourceCollection:     store.CollectionJobs,
		Patterns: []patternEntry{
			{
				re: regexp.MustCompile(`(?i)\b(?:create|add|schedule)\s+(?:an?\s+)?(?:new\s+)?([a-z]+)?\s*job\b`),
				extract: func(m []string, text string, now time.Time) (Params, string, bool) {
					p := CreateJobParams{JobType: jobType(m[1], text)}
					if name, ok := ExtractPropertyName(text); ok {
						p.PropertyName = name
					}
					if date, ok := ExtractDate(text, now); ok {
						p.ScheduledDate = date
					} else {
						p.ScheduledDate = now.AddDate(0, 0, 1).Format("2006-01-02")
					}
					if t, ok := ExtractTimeOfDay(text); ok {
						p.ScheduledTime = t
					}
					if prio, ok := ExtractPriority(text); ok {
						p.Priority = prio
					} else {
						p.Priority = "medium"
					}
					if mins, ok := ExtractDurationMinutes(text); ok {
						p.DurationMinutes = mins
					}
					return p, "", true
				},
			},
		},
		Rules:   nil,
		Handler: execCreateJob,
	},
	{
		Tag:                  TagDeleteJob,
		Safety:               SafetyDangerous,
		RequiresConfirmation: true,
		SourceCollection:     store.CollectionJobs,
		Patterns: []patternEntry{
			{
				re: regexp.MustCompile(`(?i)\b(?:delete|remove)\s+job\s+([\w\-]+)`),
				extract: func(m []string, text string, _ time.Time) (Params, string, bool) {
					p := DeleteJobParams{JobID: m[1], Override: overrideRe.MatchString(text)}
					return p, p.JobID, true
				},
			},
		},
		Rules:   rulesDeleteJob,
		Handler: execDeleteJob,
	},
	{
		Tag:                  TagRescheduleJob,
		Safety:               SafetyCaution,
		RequiresConfirmation: true,
		SourceCollection:     store.CollectionJobs,
		Patterns: []patternEntry{
			{
				re: regexp.MustCompile(`(?i)\b(?:reschedule|move)\s+job\s+([\w\-]+)(?:\s+(?:to|for|until)\s+(.+))?`),
				extract: func(m []string, text string, now time.Time) (Params, string, bool) {
					p := RescheduleJobParams{JobID: m[1]}
					if m[2] != "" {
						if d, ok := NormalizeDate(strings.TrimSpace(m[2]), now); ok {
							p.NewDate = d
						}
					}
					if p.NewDate == "" {
						if d, ok := ExtractDate(text, now); ok {
							p.NewDate = d
						} else {
							p.NewDate = now.AddDate(0, 0, 1).Format("2006-01-02")
						}
					}
					if t, ok := ExtractTimeOfDay(text); ok {
						p.NewTime = t
					}
					return p, p.JobID, true
				},
			},
		},
		Rules:   rulesRescheduleJob,
		Handler: execRescheduleJob,
	},
	{
		Tag:                  TagUpdateCalendar,
		Safety:               SafetyCaution,
		RequiresConfirmation: true,
		SourceCollection:     store.CollectionCalendarEvents,
		Patterns: []patternEntry{
			{
				re:      regexp.MustCompile(`(?i)\b(?:block|update|close)\s+(?:off\s+)?(?:the\s+)?calendar\b`),
				extract: extractUpdateCalendar,
			},
			{
				re:      regexp.MustCompile(`(?i)\bblock\s+(?:off\s+)?(?:dates|availability)\b`),
				extract: extractUpdateCalendar,
			},
		},
		Rules:   nil,
		Handler: execUpdateCalendar,
	},
	{
		Tag:                  TagSendNotification,
		Safety:               SafetySafe,
		RequiresConfirmation: false,
		SourceCollection:     store.CollectionNotifications,
		Patterns: []patternEntry{
			{
				re: regexp.MustCompile(`(?i)\b(?:notify|tell)\s+([a-zA-Z][\w .'\-]*?)\s+(?:that|about)\s+(.+)$`),
				extract: func(m []string, text string, _ time.Time) (Params, string, bool) {
					p := SendNotificationParams{Recipient: cleanName(m[1]), Message: strings.TrimSpace(m[2])}
					if prio, ok := ExtractPriority(text); ok {
						p.Priority = prio
					}
					return p, "", p.Recipient != "" && p.Message != ""
				},
			},
			{
				re: regexp.MustCompile(`(?i)\bsend\s+(?:a\s+)?(?:notification|message|reminder)\s+to\s+([a-zA-Z][\w .'\-]*?)(?:\s+(?:that|about|saying)\s+(.+))?$`),
				extract: func(m []string, text string, _ time.Time) (Params, string, bool) {
					p := SendNotificationParams{Recipient: cleanName(m[1]), Message: strings.TrimSpace(m[2])}
					if p.Message == "" {
						p.Message = strings.TrimSpace(text)
					}
					if prio, ok := ExtractPriority(text); ok {
						p.Priority = prio
					}
					return p, "", p.Recipient != ""
				},
			},
		},
		Rules:   nil,
		Handler: execSendNotification,
	},
}

// specFor returns the registry entry for a tag.
func specFor(tag ActionTag) (actionSpec, bool) {
	for _, spec := range registry {
		if spec.Tag == tag {
			return spec, true
		}
	}
	return actionSpec{}, false
}

func extractCreateBooking(_ []string, text string, now time.Time) (Params, string, bool) {
	p := CreateBookingParams{}
	if name, ok := ExtractPersonName(text); ok {
		p.GuestName = name
	}
	if email, ok := ExtractEmail(text); ok {
		p.GuestEmail = email
	}
	if name, ok := ExtractPropertyName(text); ok {
		p.PropertyName = name
	}
	p.CheckIn, p.CheckOut = ExtractDateRange(text, now)
	if guests, ok := ExtractGuestCount(text); ok {
		p.Guests = guests
	}
	return p, "", true
}

func extractUpdateCalendar(_ []string, text string, now time.Time) (Params, string, bool) {
	p := UpdateCalendarParams{}
	if name, ok := ExtractPropertyName(text); ok {
		p.PropertyName = name
	}
	p.StartDate, p.EndDate = ExtractDateRange(text, now)
	return p, "", true
}

func cleanName(s string) string {
	return strings.Trim(strings.TrimSpace(s), ".,;:")
}

// jobType picks the job type from the matched qualifier or from keywords
// elsewhere in the text, defaulting to "general".
func jobType(qualifier, text string) string {
	known := []string{"cleaning", "maintenance", "repair", "inspection", "gardening", "laundry", "checkout", "checkin"}
	q := strings.ToLower(strings.TrimSpace(qualifier))
	for _, k := range known {
		if q == k {
			return k
		}
	}
	lower := strings.ToLower(text)
	for _, k := range known {
		if strings.Contains(lower, k) {
			return k
		}
	}
	return "general"
}
