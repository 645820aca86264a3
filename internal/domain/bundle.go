package domain

// Summaries is the multi-granularity summary set.
type Summaries struct {
	OneSentence    string   `json:"one_sentence,omitempty"`
	ShortParagraph string   `json:"short_paragraph,omitempty"`
	BulletPoints   []string `json:"bullet_points,omitempty"`
}

func (s Summaries) Empty() bool {
	return s.OneSentence == "" && s.ShortParagraph == "" && len(s.BulletPoints) == 0
}

// Primary returns the summary used for the flat `summary` field:
// short paragraph when present, otherwise the one-liner.
func (s Summaries) Primary() string {
	if s.ShortParagraph != "" {
		return s.ShortParagraph
	}
	return s.OneSentence
}

// QAPair is a free-form review question with its answer.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// MCQItem is one multiple-choice question. Options keys are A-D.
type MCQItem struct {
	Question    string            `json:"question"`
	Options     map[string]string `json:"options"`
	Answer      string            `json:"answer"`
	Explanation string            `json:"explanation,omitempty"`
}

// MCQ difficulty tiers. Map keys of Bundle.MCQs.
const (
	MCQEasy   = "easy"
	MCQMedium = "medium"
	MCQHard   = "hard"
)

// Review is the quality verdict of the reviewer step. Valid=false is a
// soft signal, never a hard failure.
type Review struct {
	Valid bool   `json:"valid"`
	Notes string `json:"notes,omitempty"`
}

// Bundle is the assembled learning-asset package. Fields for disabled
// features stay zero-valued; they are never fabricated.
type Bundle struct {
	Summary       string               `json:"summary,omitempty"`
	Summaries     *Summaries           `json:"summaries,omitempty"`
	Questions     []QAPair             `json:"questions,omitempty"`
	MCQs          map[string][]MCQItem `json:"mcqs,omitempty"`
	Review        Review               `json:"review"`
	RawText       string               `json:"raw_text,omitempty"`
	ProcessedText string               `json:"processed_text,omitempty"`
}
