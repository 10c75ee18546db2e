package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/store"
)

// RecentCounter reports how many audit entries an actor produced since a
// point in time. Satisfied by the audit logger; the count must be read
// fresh from the store on every call so concurrent service instances stay
// in agreement.
type RecentCounter interface {
	CountRecent(ctx context.Context, actorID string, since time.Time) (int, error)
}

// Rules holds the configurable business constants the validator applies.
type Rules struct {
	RateLimitPerMinute int
	MaxConcurrentJobs  int
	BlackoutWeekday    time.Weekday
}

// Validator runs every pre-execution check and collects every failure; it
// never short-circuits and never mutates anything.
type Validator struct {
	store  store.Store
	recent RecentCounter
	rules  Rules
	now    func() time.Time
}

func NewValidator(s store.Store, recent RecentCounter, rules Rules) *Validator {
	return &Validator{store: s, recent: recent, rules: rules, now: time.Now}
}

// Validate checks one candidate action against the override requirement,
// the rate limit, referential existence and per-tag business rules.
func (v *Validator) Validate(ctx context.Context, a CandidateAction, ectx ExecutionContext) Validation {
	var errs []string

	if a.Safety == SafetyDangerous && !a.HasOverride() {
		errs = append(errs, fmt.Sprintf("%s is a dangerous action and requires an explicit override", a.Tag))
	}

	errs = append(errs, v.checkRateLimit(ctx, ectx)...)

	target, existErrs := v.fetchTarget(ctx, a)
	errs = append(errs, existErrs...)

	if target != nil && target.Bool("locked") {
		errs = append(errs, fmt.Sprintf("%s %s is locked", a.SourceCollection, a.TargetDocumentID))
	}

	if spec, ok := specFor(a.Tag); ok && spec.Rules != nil {
		errs = append(errs, spec.Rules(ctx, v, a, target)...)
	}

	return Validation{Valid: len(errs) == 0, Errors: errs}
}

func (v *Validator) checkRateLimit(ctx context.Context, ectx ExecutionContext) []string {
	since := v.now().Add(-time.Minute)
	count, err := v.recent.CountRecent(ctx, ectx.ActorID, since)
	if err != nil {
		return []string{fmt.Sprintf("rate limit check failed: %v", err)}
	}
	if count > v.rules.RateLimitPerMinute {
		return []string{fmt.Sprintf("rate limit exceeded: %d actions in the last minute (limit %d)", count, v.rules.RateLimitPerMinute)}
	}
	return nil
}

func (v *Validator) fetchTarget(ctx context.Context, a CandidateAction) (*store.Document, []string) {
	if a.TargetDocumentID == "" {
		return nil, nil
	}
	doc, err := v.store.Get(ctx, a.SourceCollection, a.TargetDocumentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, []string{fmt.Sprintf("%s %s not found", singular(a.SourceCollection), a.TargetDocumentID)}
		}
		return nil, []string{fmt.Sprintf("fetch %s %s: %v", singular(a.SourceCollection), a.TargetDocumentID, err)}
	}
	return &doc, nil
}

func rulesDeleteJob(_ context.Context, _ *Validator, a CandidateAction, target *store.Document) []string {
	if target == nil {
		return nil
	}
	var errs []string
	switch target.Str("status") {
	case "in_progress":
		// Never deletable, override or not.
		errs = append(errs, fmt.Sprintf("cannot delete in-progress job %s", a.TargetDocumentID))
	case "completed":
		if !a.HasOverride() {
			errs = append(errs, fmt.Sprintf("deleting completed job %s requires an override", a.TargetDocumentID))
		}
	}
	return errs
}

func rulesAssignStaff(ctx context.Context, v *Validator, a CandidateAction, target *store.Document) []string {
	var errs []string

	if target != nil && target.Str("status") == "completed" {
		errs = append(errs, fmt.Sprintf("cannot assign staff to completed job %s", a.TargetDocumentID))
	}

	staffName := ""
	switch p := a.Params.(type) {
	case AssignStaffParams:
		staffName = p.StaffName
	case ReassignStaffParams:
		staffName = p.StaffName
	}
	if staffName == "" {
		// Under-specified "who": the executor consults the scorer.
		return errs
	}

	staffDoc, err := findStaffByName(ctx, v.store, staffName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			errs = append(errs, fmt.Sprintf("staff %q not found", staffName))
		} else {
			errs = append(errs, fmt.Sprintf("look up staff %q: %v", staffName, err))
		}
		return errs
	}

	if staffDoc.Str("status") == "inactive" {
		errs = append(errs, fmt.Sprintf("staff %q is inactive", staffName))
	}

	active, err := countActiveJobs(ctx, v.store, staffDoc.ID)
	if err != nil {
		errs = append(errs, fmt.Sprintf("count jobs for staff %q: %v", staffName, err))
		return errs
	}
	if active >= v.rules.MaxConcurrentJobs {
		errs = append(errs, fmt.Sprintf("staff %q already has %d concurrent jobs (limit %d)", staffName, active, v.rules.MaxConcurrentJobs))
	}
	return errs
}

func rulesApproveBooking(_ context.Context, v *Validator, a CandidateAction, target *store.Document) []string {
	if target == nil {
		return nil
	}
	var errs []string
	if target.Str("status") == "approved" {
		errs = append(errs, fmt.Sprintf("booking %s is already approved", a.TargetDocumentID))
	}
	errs = append(errs, checkCheckInNotPast(v, a, target)...)
	return errs
}

func rulesUpdateBooking(_ context.Context, v *Validator, a CandidateAction, target *store.Document) []string {
	if target == nil {
		return nil
	}
	return checkCheckInNotPast(v, a, target)
}

func rulesRescheduleJob(_ context.Context, v *Validator, a CandidateAction, _ *store.Document) []string {
	p, ok := a.Params.(RescheduleJobParams)
	if !ok || p.NewDate == "" {
		return nil
	}
	date, err := time.Parse("2006-01-02", p.NewDate)
	if err != nil {
		return []string{fmt.Sprintf("new date %q is not a valid date", p.NewDate)}
	}

	var errs []string
	today := v.now().Format("2006-01-02")
	if p.NewDate < today {
		errs = append(errs, fmt.Sprintf("new date %s is in the past", p.NewDate))
	}
	if date.Weekday() == v.rules.BlackoutWeekday {
		errs = append(errs, fmt.Sprintf("new date %s falls on the blackout weekday (%s)", p.NewDate, v.rules.BlackoutWeekday))
	}
	return errs
}

func checkCheckInNotPast(v *Validator, a CandidateAction, target *store.Document) []string {
	checkIn := target.Str("checkIn")
	if checkIn == "" {
		return nil
	}
	if checkIn < v.now().Format("2006-01-02") {
		return []string{fmt.Sprintf("booking %s check-in date %s is in the past", a.TargetDocumentID, checkIn)}
	}
	return nil
}

// findStaffByName resolves a staff document by its name field.
func findStaffByName(ctx context.Context, s store.Store, name string) (store.Document, error) {
	docs, err := s.Query(ctx, store.CollectionStaff, []store.Filter{store.Eq("name", name)}, store.QueryOpts{Limit: 1})
	if err != nil {
		return store.Document{}, err
	}
	if len(docs) == 0 {
		return store.Document{}, store.ErrNotFound
	}
	return docs[0], nil
}

// countActiveJobs counts a staff member's jobs in the assigned or
// in_progress states.
func countActiveJobs(ctx context.Context, s store.Store, staffID string) (int, error) {
	total := 0
	for _, status := range []string{"assigned", "in_progress"} {
		n, err := s.Count(ctx, store.CollectionJobs, []store.Filter{
			store.Eq("assignedStaff", staffID),
			store.Eq("status", status),
		})
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func singular(collection string) string {
	switch collection {
	case store.CollectionJobs:
		return "job"
	case store.CollectionBookings:
		return "booking"
	case store.CollectionStaff:
		return "staff member"
	}
	return "document"
}
