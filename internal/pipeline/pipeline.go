// Package pipeline orchestrates a command request end to end: extraction,
// safety gating, validation, execution and audit, with a conversational
// model path for messages that carry no command.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/audit"
	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/command"
	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/events"
	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/llm"
	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/usage"
)

// ActionStatus tells the caller what happened to one candidate action.
type ActionStatus string

const (
	StatusExecuted            ActionStatus = "executed"
	StatusPendingConfirmation ActionStatus = "pending_confirmation"
	StatusValidationFailed    ActionStatus = "validation_failed"
	StatusExecutionFailed     ActionStatus = "execution_failed"
)

// Request is one inbound message plus the identity of its sender.
type Request struct {
	Text        string `json:"text"`
	ActorID     string `json:"actorId"`
	ActorName   string `json:"actorName,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`
	Source      string `json:"source,omitempty"`
	AutoExecute bool   `json:"autoExecute,omitempty"`

	// Provider overrides for the conversational path.
	ForceProvider  string `json:"forceProvider,omitempty"`
	PreferProvider string `json:"preferProvider,omitempty"`
}

// ActionOutcome pairs a surfaced candidate with whatever stage it reached.
type ActionOutcome struct {
	ActionID   string                   `json:"actionId"`
	Tag        command.ActionTag        `json:"tag"`
	Parameters map[string]any           `json:"parameters"`
	Confidence float64                  `json:"confidence"`
	Safety     command.SafetyLevel      `json:"safetyLevel"`
	Status     ActionStatus             `json:"status"`
	Validation *command.Validation      `json:"validation,omitempty"`
	Result     *command.ExecutionResult `json:"result,omitempty"`
}

// Response is the structured result of processing one message.
type Response struct {
	HasCommands bool            `json:"hasCommands"`
	Actions     []ActionOutcome `json:"actions,omitempty"`
	Reply       string          `json:"reply,omitempty"`
	Routing     *llm.Decision   `json:"routing,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Pipeline wires the stages together. Pending holds surfaced candidates
// awaiting confirmation; it is the only in-process state and carries no
// authority, every confirmed action is re-validated against the store.
type Pipeline struct {
	extractor *command.Extractor
	validator *command.Validator
	executor  *command.Executor
	auditor   *audit.Logger
	router    *llm.Router
	usage     *usage.Logger
	events    command.EventPublisher
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]command.CandidateAction
}

func New(
	extractor *command.Extractor,
	validator *command.Validator,
	executor *command.Executor,
	auditor *audit.Logger,
	router *llm.Router,
	usageLog *usage.Logger,
	publisher command.EventPublisher,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		validator: validator,
		executor:  executor,
		auditor:   auditor,
		router:    router,
		usage:     usageLog,
		events:    publisher,
		logger:    logger,
		pending:   make(map[string]command.CandidateAction),
	}
}

// Process handles one message. Panics anywhere below this boundary are
// converted into an error response so the caller always gets a
// well-formed result.
func (p *Pipeline) Process(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline panic", "actorId", req.ActorID, "panic", r)
			resp = Response{Error: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	ectx := p.executionContext(req)
	candidates := p.extractor.Extract(req.Text)
	if len(candidates) == 0 {
		return p.converse(ctx, req, ectx)
	}

	resp.HasCommands = true
	for _, a := range candidates {
		outcome := ActionOutcome{
			ActionID:   a.ID,
			Tag:        a.Tag,
			Parameters: command.ParamsMap(a.Params),
			Confidence: a.Confidence,
			Safety:     a.Safety,
		}

		autoSafe := a.Safety == command.SafetySafe && !a.RequiresConfirmation
		if req.AutoExecute && autoSafe {
			outcome = p.runAction(ctx, a, ectx, outcome)
		} else {
			p.hold(a)
			outcome.Status = StatusPendingConfirmation
		}
		resp.Actions = append(resp.Actions, outcome)
	}
	return resp
}

// ExecuteConfirmed applies a previously surfaced candidate after the user
// confirmed it. The candidate is re-validated: the store may have moved
// since it was surfaced.
func (p *Pipeline) ExecuteConfirmed(ctx context.Context, actionID string, override bool, req Request) (Response, error) {
	p.mu.Lock()
	a, ok := p.pending[actionID]
	if ok {
		delete(p.pending, actionID)
	}
	p.mu.Unlock()
	if !ok {
		return Response{}, fmt.Errorf("no pending action %s", actionID)
	}

	if override {
		a = a.WithOverride()
	}

	outcome := ActionOutcome{
		ActionID:   a.ID,
		Tag:        a.Tag,
		Parameters: command.ParamsMap(a.Params),
		Confidence: a.Confidence,
		Safety:     a.Safety,
	}
	outcome = p.runAction(ctx, a, p.executionContext(req), outcome)
	return Response{HasCommands: true, Actions: []ActionOutcome{outcome}}, nil
}

// runAction is the validate, audit, execute, audit sequence. Exactly one
// attempted entry and exactly one completed or failed entry are written
// per execution; validation failures stop before either.
func (p *Pipeline) runAction(ctx context.Context, a command.CandidateAction, ectx command.ExecutionContext, outcome ActionOutcome) ActionOutcome {
	validation := p.validator.Validate(ctx, a, ectx)
	if !validation.Valid {
		outcome.Status = StatusValidationFailed
		outcome.Validation = &validation
		return outcome
	}

	p.auditor.LogAttempt(ctx, a, ectx)
	result := p.executor.Execute(ctx, a, ectx)
	p.auditor.LogResult(ctx, a, ectx, result)

	outcome.Result = &result
	if result.Success {
		outcome.Status = StatusExecuted
	} else {
		outcome.Status = StatusExecutionFailed
	}

	if p.events != nil {
		if err := p.events.Publish(command.SubjectCommandExecuted, map[string]any{
			"actionId": a.ID,
			"tag":      string(a.Tag),
			"actorId":  ectx.ActorID,
			"success":  result.Success,
			"message":  result.Message,
		}); err != nil {
			p.logger.Warn("event publish failed", "subject", command.SubjectCommandExecuted, "error", err)
		}
	}
	return outcome
}

// converse routes the message to a model provider, records usage and
// scans the reply for follow-up actions. Follow-ups always require
// confirmation, whatever their safety level: the model's text is a
// suggestion, not a user instruction.
func (p *Pipeline) converse(ctx context.Context, req Request, ectx command.ExecutionContext) Response {
	decision := p.router.Route(llm.RouteRequest{
		Message:   req.Text,
		Forced:    req.ForceProvider,
		Preferred: req.PreferProvider,
	})

	provider, err := p.router.Resolve(decision)
	if err != nil {
		return Response{Routing: &decision, Error: fmt.Sprintf("no model provider available: %v", err)}
	}

	started := time.Now()
	reply, err := provider.Send(ctx, []llm.Message{
		{Role: "system", Content: conversationSystemPrompt},
		{Role: "user", Content: req.Text},
	}, llm.Options{Temperature: 0.7, MaxTokens: 1024})

	rec := usage.Record{
		SessionID:      req.SessionID,
		ActorID:        req.ActorID,
		Provider:       decision.Provider,
		Model:          provider.Model(),
		TaskType:       decision.TaskTypeGuess,
		ResponseTimeMS: time.Since(started).Milliseconds(),
		Success:        err == nil,
	}
	if provider.Name() != decision.Provider {
		rec.ActualProvider = provider.Name()
	}

	if err != nil {
		p.usage.Log(ctx, rec)
		return Response{Routing: &decision, Error: fmt.Sprintf("model call failed: %v", err)}
	}
	rec.InputTokens = reply.Usage.InputTokens
	rec.OutputTokens = reply.Usage.OutputTokens

	resp := Response{Reply: reply.Text, Routing: &decision}
	for _, a := range p.extractor.Extract(reply.Text) {
		a.RequiresConfirmation = true
		p.hold(a)
		resp.Actions = append(resp.Actions, ActionOutcome{
			ActionID:   a.ID,
			Tag:        a.Tag,
			Parameters: command.ParamsMap(a.Params),
			Confidence: a.Confidence,
			Safety:     a.Safety,
			Status:     StatusPendingConfirmation,
		})
	}
	resp.HasCommands = len(resp.Actions) > 0

	// Follow-ups are always held for confirmation, so none count as executed.
	rec.CommandsDetected = len(resp.Actions)
	p.usage.Log(ctx, rec)
	return resp
}

// HandleCommandEvent is the NATS entry point. Malformed payloads are
// logged and dropped; there is no requester to answer.
func (p *Pipeline) HandleCommandEvent(subject string, data []byte) {
	var req events.CommandRequest
	if err := json.Unmarshal(data, &req); err != nil {
		p.logger.Warn("malformed command event", "subject", subject, "error", err)
		return
	}
	if req.Text == "" || req.ActorID == "" {
		p.logger.Warn("command event missing text or actorId", "subject", subject)
		return
	}

	resp := p.Process(context.Background(), Request{
		Text:        req.Text,
		ActorID:     req.ActorID,
		Source:      "nats",
		AutoExecute: req.AutoExecute,
	})
	p.logger.Info("processed command event",
		"actorId", req.ActorID,
		"hasCommands", resp.HasCommands,
		"actions", len(resp.Actions))
}

// PendingCount reports how many surfaced actions await confirmation.
func (p *Pipeline) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *Pipeline) hold(a command.CandidateAction) {
	p.mu.Lock()
	p.pending[a.ID] = a
	p.mu.Unlock()
}

func (p *Pipeline) executionContext(req Request) command.ExecutionContext {
	source := req.Source
	if source == "" {
		source = "api"
	}
	return command.ExecutionContext{
		ActorID:   req.ActorID,
		ActorName: req.ActorName,
		SessionID: req.SessionID,
		Timestamp: time.Now().UTC(),
		Source:    source,
	}
}

const conversationSystemPrompt = "You are the operations assistant for a short-term rental property management team. " +
	"Answer concisely. When the user asks for an administrative change, restate it as a single imperative sentence " +
	"such as \"assign Maria Santos to job job-001\" so it can be confirmed and applied."
