package staffing

import (
	"context"
	"fmt"

	"github.com/TOOL2U/Sia-Moon---Property-Management--sub005/internal/store"
)

// Loader reads staff documents into candidates. It holds no cache: every
// suggestion request sees the store's current state.
type Loader struct {
	store store.Store
}

func NewLoader(s store.Store) *Loader {
	return &Loader{store: s}
}

// Candidates returns every non-inactive staff member.
func (l *Loader) Candidates(ctx context.Context) ([]StaffCandidate, error) {
	docs, err := l.store.Query(ctx, store.CollectionStaff, []store.Filter{
		{Field: "status", Op: "!=", Value: "inactive"},
	}, store.QueryOpts{})
	if err != nil {
		return nil, fmt.Errorf("query staff: %w", err)
	}

	candidates := make([]StaffCandidate, 0, len(docs))
	for _, doc := range docs {
		candidates = append(candidates, candidateFromDoc(doc))
	}
	return candidates, nil
}

// RequirementsFor derives job requirements from a job document.
func RequirementsFor(job store.Document) JobRequirements {
	return JobRequirements{
		RequiredSkills: job.Strings("requiredSkills"),
		PropertyID:     job.Str("propertyId"),
		ScheduledDate:  job.Str("scheduledDate"),
	}
}

// SuggestForJob loads current candidates and ranks them for the job.
func (l *Loader) SuggestForJob(ctx context.Context, job store.Document) ([]Suggestion, error) {
	candidates, err := l.Candidates(ctx)
	if err != nil {
		return nil, err
	}
	return Suggest(RequirementsFor(job), candidates), nil
}

// PickBest returns the top-ranked staff member for a job. Used by the
// executor when a command names no assignee.
func (l *Loader) PickBest(ctx context.Context, job store.Document) (string, string, error) {
	suggestions, err := l.SuggestForJob(ctx, job)
	if err != nil {
		return "", "", err
	}
	if len(suggestions) == 0 {
		return "", "", fmt.Errorf("no staff candidates available")
	}
	best := suggestions[0]
	return best.StaffID, best.Name, nil
}

func candidateFromDoc(doc store.Document) StaffCandidate {
	return StaffCandidate{
		StaffID:             doc.ID,
		Name:                doc.Str("name"),
		Role:                doc.Str("role"),
		Skills:              doc.Strings("skills"),
		Status:              doc.Str("status"),
		ActiveJobs:          int(doc.Num("activeJobs")),
		PendingJobs:         int(doc.Num("pendingJobs")),
		CompletionRatePct:   doc.Num("completionRate"),
		AverageRating:       doc.Num("rating"),
		PunctualityPct:      doc.Num("punctuality"),
		AssignedPropertyIDs: doc.Strings("assignedProperties"),
	}
}
