package domain

// Feature is one independently generated portion of the bundle.
type Feature string

const (
	FeatureSummaries Feature = "summaries"
	FeatureQuestions Feature = "questions"
	FeatureMCQs      Feature = "mcqs"
)

// FeatureDecision is the feature gate's verdict for one request. It is
// computed once at submission, passed by value through the pipeline and
// never re-derived mid-run.
type FeatureDecision struct {
	Enabled        map[Feature]bool `json:"enabled"`
	Model          string           `json:"model"`
	QuotaRemaining int              `json:"quota_remaining"` // -1 means unlimited
}

func (d FeatureDecision) IsEnabled(f Feature) bool {
	return d.Enabled[f]
}

// EnabledCount reports how many generation features this run fans out.
func (d FeatureDecision) EnabledCount() int {
	n := 0
	for _, on := range d.Enabled {
		if on {
			n++
		}
	}
	return n
}
