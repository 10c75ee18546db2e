// Package staffing ranks candidate staff for a job with a weighted
// multi-factor score. Scoring is a pure function of its inputs: identical
// candidates and requirements always produce identical scores.
package staffing

import (
	"math"
	"sort"
)

// Sub-score weights. They sum to 1.0.
const (
	weightSkill        = 0.30
	weightAvailability = 0.25
	weightWorkload     = 0.20
	weightPerformance  = 0.15
	weightLocation     = 0.10
)

// Confidence bands the overall score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// JobRequirements describes what a job needs from its assignee.
type JobRequirements struct {
	RequiredSkills []string `json:"requiredSkills"`
	PropertyID     string   `json:"propertyId,omitempty"`
	ScheduledDate  string   `json:"scheduledDate,omitempty"`
}

// StaffCandidate is a staff member as read from the store for one request.
type StaffCandidate struct {
	StaffID             string   `json:"staffId"`
	Name                string   `json:"name"`
	Role                string   `json:"role"`
	Skills              []string `json:"skills"`
	Status              string   `json:"status"` // available | busy | off_duty | inactive
	ActiveJobs          int      `json:"activeJobCount"`
	PendingJobs         int      `json:"pendingJobCount"`
	CompletionRatePct   float64  `json:"completionRatePct"`
	AverageRating       float64  `json:"averageRating"` // 0..5
	PunctualityPct      float64  `json:"punctualityPct"`
	AssignedPropertyIDs []string `json:"assignedPropertyIds"`
}

// Suggestion is a scored recommendation. Derived and read-only: it is
// recomputed per request, never persisted as a source of truth.
type Suggestion struct {
	StaffID              string     `json:"staffId"`
	Name                 string     `json:"name"`
	SkillMatchPct        float64    `json:"skillMatchPct"`
	AvailabilityMatchPct float64    `json:"availabilityMatchPct"`
	WorkloadMatchPct     float64    `json:"workloadMatchPct"`
	PerformancePct       float64    `json:"performancePct"`
	LocationMatchPct     float64    `json:"locationMatchPct"`
	OverallScore         int        `json:"overallScore"`
	Confidence           Confidence `json:"confidence"`
	MatchReasons         []string   `json:"matchReasons,omitempty"`
	Concerns             []string   `json:"concerns,omitempty"`
}

// Suggest scores every candidate and returns suggestions sorted by
// descending overall score (staff id breaks ties, for determinism).
func Suggest(job JobRequirements, candidates []StaffCandidate) []Suggestion {
	suggestions := make([]Suggestion, 0, len(candidates))
	for _, c := range candidates {
		suggestions = append(suggestions, Score(job, c))
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].OverallScore != suggestions[j].OverallScore {
			return suggestions[i].OverallScore > suggestions[j].OverallScore
		}
		return suggestions[i].StaffID < suggestions[j].StaffID
	})
	return suggestions
}

// Score computes the five sub-scores and the weighted overall score for
// one candidate.
func Score(job JobRequirements, c StaffCandidate) Suggestion {
	s := Suggestion{
		StaffID:              c.StaffID,
		Name:                 c.Name,
		SkillMatchPct:        skillMatch(job.RequiredSkills, c.Skills),
		AvailabilityMatchPct: availabilityMatch(c),
		WorkloadMatchPct:     workloadMatch(c.ActiveJobs + c.PendingJobs),
		PerformancePct:       performance(c),
		LocationMatchPct:     locationMatch(job.PropertyID, c.AssignedPropertyIDs),
	}

	overall := weightSkill*s.SkillMatchPct +
		weightAvailability*s.AvailabilityMatchPct +
		weightWorkload*s.WorkloadMatchPct +
		weightPerformance*s.PerformancePct +
		weightLocation*s.LocationMatchPct
	s.OverallScore = int(math.Round(overall))

	switch {
	case s.OverallScore >= 80:
		s.Confidence = ConfidenceHigh
	case s.OverallScore >= 60:
		s.Confidence = ConfidenceMedium
	default:
		s.Confidence = ConfidenceLow
	}

	s.MatchReasons, s.Concerns = annotate(s)
	return s
}

// skillMatch is the fraction of required skills the candidate has, as a
// percentage. No requirements means a full match.
func skillMatch(required, have []string) float64 {
	if len(required) == 0 {
		return 100
	}
	haveSet := make(map[string]bool, len(have))
	for _, s := range have {
		haveSet[s] = true
	}
	matched := 0
	for _, s := range required {
		if haveSet[s] {
			matched++
		}
	}
	return 100 * float64(matched) / float64(len(required))
}

// availabilityMatch is the one time-sensitive component: it reflects the
// candidate's current status, not a stable attribute.
func availabilityMatch(c StaffCandidate) float64 {
	switch c.Status {
	case "available":
		return 100
	case "busy":
		if c.ActiveJobs < 3 {
			return 70
		}
		return 50
	case "off_duty":
		return 20
	default:
		return 50
	}
}

// workloadMatch decays in steps as the total of active and pending jobs
// rises past 2, 4 and 6.
func workloadMatch(total int) float64 {
	switch {
	case total == 0:
		return 100
	case total <= 2:
		return 80
	case total <= 4:
		return 60
	case total <= 6:
		return 40
	default:
		return 20
	}
}

func performance(c StaffCandidate) float64 {
	return (c.CompletionRatePct + c.AverageRating*20 + c.PunctualityPct) / 3
}

// locationMatch favors staff pre-assigned to the property; staff with no
// property restrictions at all can go anywhere.
func locationMatch(propertyID string, assigned []string) float64 {
	if propertyID != "" {
		for _, id := range assigned {
			if id == propertyID {
				return 100
			}
		}
	}
	if len(assigned) == 0 {
		return 80
	}
	if propertyID == "" {
		return 80
	}
	return 40
}

// annotate emits a fixed phrase per dimension: a reason when the
// sub-score is at least 80, a concern when it is below 50.
func annotate(s Suggestion) (reasons, concerns []string) {
	dims := []struct {
		score   float64
		reason  string
		concern string
	}{
		{s.SkillMatchPct, "has the required skills", "missing required skills"},
		{s.AvailabilityMatchPct, "currently available", "limited availability"},
		{s.WorkloadMatchPct, "light current workload", "heavy current workload"},
		{s.PerformancePct, "strong performance record", "below-average performance record"},
		{s.LocationMatchPct, "familiar with the property", "not assigned to this property"},
	}
	for _, d := range dims {
		if d.score >= 80 {
			reasons = append(reasons, d.reason)
		} else if d.score < 50 {
			concerns = append(concerns, d.concern)
		}
	}
	return reasons, concerns
}
