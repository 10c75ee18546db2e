package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/store"
)

// StaffPicker chooses an assignee when a command under-specifies "who".
// Satisfied by the staffing loader.
type StaffPicker interface {
	PickBest(ctx context.Context, job store.Document) (staffID, staffName string, err error)
}

// EventPublisher emits best-effort events after successful mutations.
// Satisfied by the NATS events client; may be nil.
type EventPublisher interface {
	Publish(subject string, data any) error
}

// Subjects for executor-emitted events.
const (
	SubjectCommandExecuted   = "siamoon.ai.command.executed"
	SubjectStaffNotification = "siamoon.staff.notification"
)

// Executor performs the document writes for one validated action. It
// assumes validity: business rules have already run. Store errors are
// returned as failed results, never panics.
type Executor struct {
	store  store.Store
	picker StaffPicker
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

func NewExecutor(s store.Store, picker StaffPicker, events EventPublisher, logger *slog.Logger) *Executor {
	return &Executor{store: s, picker: picker, events: events, logger: logger, now: time.Now}
}

// Execute dispatches the action to its registered handler. Unexpected
// panics inside a handler are converted to failed results so nothing
// escapes the executor boundary.
func (x *Executor) Execute(ctx context.Context, a CandidateAction, ectx ExecutionContext) (result ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			x.logger.Error("handler panic", "tag", a.Tag, "panic", r)
			result = failure(fmt.Sprintf("internal error executing %s", a.Tag), fmt.Sprintf("%v", r))
		}
	}()

	spec, ok := specFor(a.Tag)
	if !ok || spec.Handler == nil {
		return failure(fmt.Sprintf("no handler for action %s", a.Tag))
	}
	return spec.Handler(ctx, x, a, ectx)
}

func failure(message string, errs ...string) ExecutionResult {
	if len(errs) == 0 {
		errs = []string{message}
	}
	return ExecutionResult{Success: false, Message: message, Errors: errs}
}

func execAssignStaff(ctx context.Context, x *Executor, a CandidateAction, ectx ExecutionContext) ExecutionResult {
	p, ok := a.Params.(AssignStaffParams)
	if !ok {
		return failure("assign_staff: wrong parameter type")
	}
	return x.assign(ctx, a, ectx, p.StaffName, p.JobID, false)
}

func execReassignStaff(ctx context.Context, x *Executor, a CandidateAction, ectx ExecutionContext) ExecutionResult {
	p, ok := a.Params.(ReassignStaffParams)
	if !ok {
		return failure("reassign_staff: wrong parameter type")
	}
	return x.assign(ctx, a, ectx, p.StaffName, p.JobID, true)
}

// assign covers both assignment flavors: look up (or pick) the staff
// member, write the assignment onto the job, then emit a notification
// document. The two writes are independent; a failure in between leaves
// the job assigned but unnotified, which the retry path re-validates.
func (x *Executor) assign(ctx context.Context, a CandidateAction, ectx ExecutionContext, staffName, jobID string, reassign bool) ExecutionResult {
	job, err := x.store.Get(ctx, store.CollectionJobs, jobID)
	if err != nil {
		return failure(fmt.Sprintf("fetch job %s: %v", jobID, err))
	}

	var staffID string
	if staffName == "" {
		if x.picker == nil {
			return failure("no staff named and no suggestion scorer configured")
		}
		staffID, staffName, err = x.picker.PickBest(ctx, job)
		if err != nil {
			return failure(fmt.Sprintf("pick staff for job %s: %v", jobID, err))
		}
	} else {
		staffDoc, err := findStaffByName(ctx, x.store, staffName)
		if err != nil {
			return failure(fmt.Sprintf("look up staff %q: %v", staffName, err))
		}
		staffID = staffDoc.ID
	}

	fields := map[string]any{
		"assignedStaff":     staffID,
		"assignedStaffName": staffName,
		"status":            "assigned",
		"assignedAt":        x.now().UTC().Format(time.RFC3339),
		"assignedBy":        ectx.ActorID,
	}
	if reassign {
		fields["previousStaff"] = job.Str("assignedStaff")
	}
	if err := x.store.UpdateFields(ctx, store.CollectionJobs, jobID, fields); err != nil {
		return failure(fmt.Sprintf("update job %s: %v", jobID, err))
	}

	notifID, err := x.store.Create(ctx, store.CollectionNotifications, "", map[string]any{
		"staffId":   staffID,
		"type":      "job_assigned",
		"jobId":     jobID,
		"message":   fmt.Sprintf("You have been assigned to job %s", jobID),
		"status":    "unread",
		"createdBy": ectx.ActorID,
	})
	if err != nil {
		return failure(fmt.Sprintf("notify staff %q: %v", staffName, err))
	}

	x.publish(SubjectStaffNotification, map[string]any{
		"staffId": staffID,
		"jobId":   jobID,
		"type":    "job_assigned",
	})

	verb := "Assigned"
	if reassign {
		verb = "Reassigned"
	}
	return ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("%s %s to job %s", verb, staffName, jobID),
		Data: map[string]any{
			"jobId":          jobID,
			"staffId":        staffID,
			"staffName":      staffName,
			"notificationId": notifID,
		},
	}
}

func execApproveBooking(ctx context.Context, x *Executor, a CandidateAction, ectx ExecutionContext) ExecutionResult {
	p, ok := a.Params.(ApproveBookingParams)
	if !ok {
		return failure("approve_booking: wrong parameter type")
	}

	err := x.store.UpdateFields(ctx, store.CollectionBookings, p.BookingID, map[string]any{
		"status":     "approved",
		"approvedAt": x.now().UTC().Format(time.RFC3339),
		"approvedBy": ectx.ActorID,
	})
	if err != nil {
		return failure(fmt.Sprintf("approve booking %s: %v", p.BookingID, err))
	}

	return ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("Approved booking %s", p.BookingID),
		Data:    map[string]any{"bookingId": p.BookingID},
	}
}

func execUpdateBooking(ctx context.Context, x *Executor, a CandidateAction, _ ExecutionContext) ExecutionResult {
	p, ok := a.Params.(UpdateBookingParams)
	if !ok {
		return failure("update_booking: wrong parameter type")
	}

	fields := map[string]any{}
	if p.CheckIn != "" {
		fields["checkIn"] = p.CheckIn
	}
	if p.CheckOut != "" {
		fields["checkOut"] = p.CheckOut
	}
	if p.Guests > 0 {
		fields["guests"] = p.Guests
	}
	if len(fields) == 0 {
		return failure(fmt.Sprintf("no updatable fields found for booking %s", p.BookingID))
	}

	if err := x.store.UpdateFields(ctx, store.CollectionBookings, p.BookingID, fields); err != nil {
		return failure(fmt.Sprintf("update booking %s: %v", p.BookingID, err))
	}

	return ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("Updated booking %s", p.BookingID),
		Data:    map[string]any{"bookingId": p.BookingID, "fields": fields},
	}
}

func execCreateBooking(ctx context.Context, x *Executor, a CandidateAction, ectx ExecutionContext) ExecutionResult {
	p, ok := a.Params.(CreateBookingParams)
	if !ok {
		return failure("create_booking: wrong parameter type")
	}

	data := map[string]any{
		"guestName":    p.GuestName,
		"propertyName": p.PropertyName,
		"checkIn":      p.CheckIn,
		"checkOut":     p.CheckOut,
		"status":       "pending_approval",
		"createdBy":    ectx.ActorID,
	}
	if p.GuestEmail != "" {
		data["guestEmail"] = p.GuestEmail
	}
	if p.Guests > 0 {
		data["guests"] = p.Guests
	}

	id, err := x.store.Create(ctx, store.CollectionBookings, "", data)
	if err != nil {
		return failure(fmt.Sprintf("create booking: %v", err))
	}

	return ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("Created booking %s (%s to %s)", id, p.CheckIn, p.CheckOut),
		Data:    map[string]any{"bookingId": id},
	}
}

func execCreateJob(ctx context.Context, x *Executor, a CandidateAction, ectx ExecutionContext) ExecutionResult {
	p, ok := a.Params.(CreateJobParams)
	if !ok {
		return failure("create_job: wrong parameter type")
	}

	data := map[string]any{
		"jobType":       p.JobType,
		"scheduledDate": p.ScheduledDate,
		"priority":      p.Priority,
		"status":        "pending",
		"createdBy":     ectx.ActorID,
	}
	if p.PropertyName != "" {
		data["propertyName"] = p.PropertyName
	}
	if p.ScheduledTime != "" {
		data["scheduledTime"] = p.ScheduledTime
	}
	if p.DurationMinutes > 0 {
		data["durationMinutes"] = p.DurationMinutes
	}

	id, err := x.store.Create(ctx, store.CollectionJobs, "", data)
	if err != nil {
		return failure(fmt.Sprintf("create job: %v", err))
	}

	return ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("Created %s job %s for %s", p.JobType, id, p.ScheduledDate),
		Data:    map[string]any{"jobId": id},
	}
}

func execDeleteJob(ctx context.Context, x *Executor, a CandidateAction, _ ExecutionContext) ExecutionResult {
	p, ok := a.Params.(DeleteJobParams)
	if !ok {
		return failure("delete_job: wrong parameter type")
	}

	if err := x.store.Delete(ctx, store.CollectionJobs, p.JobID); err != nil {
		return failure(fmt.Sprintf("delete job %s: %v", p.JobID, err))
	}

	return ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("Deleted job %s", p.JobID),
		Data:    map[string]any{"jobId": p.JobID},
	}
}

func execRescheduleJob(ctx context.Context, x *Executor, a CandidateAction, _ ExecutionContext) ExecutionResult {
	p, ok := a.Params.(RescheduleJobParams)
	if !ok {
		return failure("reschedule_job: wrong parameter type")
	}

	fields := map[string]any{
		"scheduledDate": p.NewDate,
		"rescheduledAt": x.now().UTC().Format(time.RFC3339),
	}
	if p.NewTime != "" {
		fields["scheduledTime"] = p.NewTime
	}

	if err := x.store.UpdateFields(ctx, store.CollectionJobs, p.JobID, fields); err != nil {
		return failure(fmt.Sprintf("reschedule job %s: %v", p.JobID, err))
	}

	return ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("Rescheduled job %s to %s", p.JobID, p.NewDate),
		Data:    map[string]any{"jobId": p.JobID, "newDate": p.NewDate},
	}
}

func execUpdateCalendar(ctx context.Context, x *Executor, a CandidateAction, ectx ExecutionContext) ExecutionResult {
	p, ok := a.Params.(UpdateCalendarParams)
	if !ok {
		return failure("update_calendar: wrong parameter type")
	}

	data := map[string]any{
		"startDate": p.StartDate,
		"endDate":   p.EndDate,
		"status":    "blocked",
		"createdBy": ectx.ActorID,
	}
	if p.PropertyName != "" {
		data["propertyName"] = p.PropertyName
	}

	id, err := x.store.Create(ctx, store.CollectionCalendarEvents, "", data)
	if err != nil {
		return failure(fmt.Sprintf("update calendar: %v", err))
	}

	return ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("Blocked calendar from %s to %s", p.StartDate, p.EndDate),
		Data:    map[string]any{"calendarEventId": id},
	}
}

func execSendNotification(ctx context.Context, x *Executor, a CandidateAction, ectx ExecutionContext) ExecutionResult {
	p, ok := a.Params.(SendNotificationParams)
	if !ok {
		return failure("send_notification: wrong parameter type")
	}

	data := map[string]any{
		"recipient": p.Recipient,
		"message":   p.Message,
		"status":    "unread",
		"createdBy": ectx.ActorID,
	}
	if p.Priority != "" {
		data["priority"] = p.Priority
	}

	id, err := x.store.Create(ctx, store.CollectionNotifications, "", data)
	if err != nil {
		return failure(fmt.Sprintf("send notification to %q: %v", p.Recipient, err))
	}

	x.publish(SubjectStaffNotification, map[string]any{
		"recipient": p.Recipient,
		"type":      "direct_message",
	})

	return ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("Notification sent to %s", p.Recipient),
		Data:    map[string]any{"notificationId": id},
	}
}

// publish emits an event without letting a bus failure affect the result.
func (x *Executor) publish(subject string, data any) {
	if x.events == nil {
		return
	}
	if err := x.events.Publish(subject, data); err != nil {
		x.logger.Warn("event publish failed", "subject", subject, "error", err)
	}
}
