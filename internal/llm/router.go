package llm

import (
	"fmt"
	"log/slog"
	"strings"
)

// RouteRequest carries the message plus any caller preference.
type RouteRequest struct {
	Message string
	// Forced pins the provider unconditionally; Preferred pins it with
	// slightly lower confidence. Forced wins over Preferred.
	Forced    string
	Preferred string
}

// Decision explains which provider should answer and why.
type Decision struct {
	Provider      string  `json:"chosenProvider"`
	TaskTypeGuess string  `json:"taskTypeGuess"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning"`
}

// Keyword buckets, checked in a fixed order so ties resolve the same way
// every time.
var taskBuckets = []struct {
	name     string
	keywords []string
}{
	{"analysis", []string{"analyze", "analysis", "compare", "evaluate", "review", "assess", "why", "explain", "report", "trend"}},
	{"planning", []string{"plan", "schedule", "organize", "prepare", "strategy", "roadmap", "next week", "upcoming", "arrange"}},
	{"action", []string{"assign", "create", "delete", "update", "approve", "send", "book", "cancel", "reschedule", "notify"}},
	{"creative", []string{"write", "draft", "compose", "message", "describe", "suggest a name", "wording", "rephrase"}},
	{"technical", []string{"error", "bug", "integration", "api", "sync", "configure", "debug", "log", "webhook"}},
}

// anthropicTasks maps task-type guesses to the anthropic provider; every
// other guess, including "general", goes to openai.
var anthropicTasks = map[string]bool{
	"analysis":  true,
	"technical": true,
	"planning":  true,
}

// Router picks a provider per message and resolves fallbacks when the
// chosen provider has no credential.
type Router struct {
	providers map[string]Provider
	logger    *slog.Logger
}

func NewRouter(logger *slog.Logger, providers ...Provider) *Router {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Router{providers: byName, logger: logger}
}

// Route decides which provider should answer the message. A forced or
// preferred provider wins outright; otherwise the message is scored
// against the keyword buckets.
func (r *Router) Route(req RouteRequest) Decision {
	if req.Forced != "" {
		return Decision{
			Provider:      req.Forced,
			TaskTypeGuess: "general",
			Confidence:    1.0,
			Reasoning:     "provider forced by caller",
		}
	}
	if req.Preferred != "" {
		return Decision{
			Provider:      req.Preferred,
			TaskTypeGuess: "general",
			Confidence:    0.8,
			Reasoning:     "provider preferred by caller",
		}
	}

	lower := strings.ToLower(req.Message)
	wordCount := len(strings.Fields(lower))
	if wordCount == 0 {
		wordCount = 1
	}

	guess := "general"
	bestHits := 0
	for _, bucket := range taskBuckets {
		hits := 0
		for _, kw := range bucket.keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			guess = bucket.name
		}
	}

	provider := ProviderOpenAI
	if anthropicTasks[guess] {
		provider = ProviderAnthropic
	}

	confidence := 0.5 + 2*float64(bestHits)/float64(wordCount)
	if confidence > 1.0 {
		confidence = 1.0
	}

	return Decision{
		Provider:      provider,
		TaskTypeGuess: guess,
		Confidence:    confidence,
		Reasoning:     fmt.Sprintf("task type %q (%d keyword hits in %d words)", guess, bestHits, wordCount),
	}
}

// Resolve maps a decision to a usable provider. When the chosen provider
// lacks a credential it falls back once to the other configured provider,
// and ultimately to openai even unconfigured so the caller gets a
// reportable connectivity error instead of a nil provider.
func (r *Router) Resolve(d Decision) (Provider, error) {
	chosen, ok := r.providers[d.Provider]
	if ok && chosen.Configured() {
		return chosen, nil
	}

	for name, p := range r.providers {
		if name != d.Provider && p.Configured() {
			r.logger.Warn("provider not configured, falling back",
				"chosen", d.Provider,
				"fallback", name)
			return p, nil
		}
	}

	if fallback, ok := r.providers[ProviderOpenAI]; ok {
		r.logger.Warn("no configured provider, defaulting to openai", "chosen", d.Provider)
		return fallback, nil
	}
	return nil, fmt.Errorf("no provider available for %q", d.Provider)
}
