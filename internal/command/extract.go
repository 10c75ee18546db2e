package command

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Extractor scans free text against the pattern library and yields
// candidate actions. It is pure text processing: no store access, no
// side effects beyond logging.
type Extractor struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger, now: time.Now}
}

const baseConfidence = 0.6

// Extract applies every pattern in the library to the input and returns the
// surviving candidates: sorted by descending confidence, deduplicated by
// ActionTag keeping the highest-confidence instance per tag.
func (e *Extractor) Extract(text string) []CandidateAction {
	if text == "" {
		return nil
	}
	now := e.now()

	var candidates []CandidateAction
	for _, spec := range registry {
		for _, entry := range spec.Patterns {
			m := entry.re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			params, targetID, ok := entry.extract(m, text, now)
			if !ok {
				continue
			}
			candidates = append(candidates, CandidateAction{
				ID:                   uuid.New().String(),
				Tag:                  spec.Tag,
				Params:               params,
				Confidence:           confidence(m, text, now),
				Safety:               spec.Safety,
				RequiresConfirmation: spec.RequiresConfirmation,
				OriginalText:         text,
				SourceCollection:     spec.SourceCollection,
				TargetDocumentID:     targetID,
			})
		}
	}

	candidates = dedupeByTag(candidates)

	if len(candidates) > 0 {
		tags := make([]string, len(candidates))
		for i, c := range candidates {
			tags[i] = string(c.Tag)
		}
		e.logger.Debug("extracted candidate actions", "count", len(candidates), "tags", tags)
	}
	return candidates
}

// confidence starts from a base value and is boosted when the match covers
// most of the message, when multiple capture groups were populated, and
// when auxiliary context (a property name or a parseable date) appears
// elsewhere in the text.
func confidence(m []string, text string, now time.Time) float64 {
	conf := baseConfidence

	if len(text) > 0 && len(m[0])*2 >= len(text) {
		conf += 0.15
	}

	populated := 0
	for _, g := range m[1:] {
		if g != "" {
			populated++
		}
	}
	if populated >= 2 {
		conf += 0.10
	}

	_, hasProperty := ExtractPropertyName(text)
	_, hasDate := ExtractDate(text, now)
	if hasProperty || hasDate {
		conf += 0.10
	}

	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}

// dedupeByTag keeps the highest-confidence candidate per tag, preserving
// descending confidence order overall.
func dedupeByTag(candidates []CandidateAction) []CandidateAction {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	seen := map[ActionTag]bool{}
	out := candidates[:0]
	for _, c := range candidates {
		if seen[c.Tag] {
			continue
		}
		seen[c.Tag] = true
		out = append(out, c)
	}
	return out
}
