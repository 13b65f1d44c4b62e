package core

import "strings"

// Reference is a reference diagram handed to the Planner. It is produced by
// a retrieval collaborator and never modified afterwards.
type Reference struct {
	ID          string
	FilePath    string // Relative path within the references directory
	Category    string
	Description string
	Tags        map[string]struct{}

	// ImagePayload is empty for text-only references.
	ImagePayload []byte
}

// HasImage reports whether the reference carries image bytes.
func (r Reference) HasImage() bool {
	return len(r.ImagePayload) > 0
}

// HasTag reports whether tag is attached to the reference.
func (r Reference) HasTag(tag string) bool {
	_, ok := r.Tags[tag]
	return ok
}

// PlannerOutput is the Planner's visual description.
type PlannerOutput struct {
	Description string
	WordCount   int
}

// NewPlannerOutput trims the model response and counts its words.
func NewPlannerOutput(text string) PlannerOutput {
	desc := strings.TrimSpace(text)
	return PlannerOutput{Description: desc, WordCount: WordCount(desc)}
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// CriticOutput is a single round's verdict. RefinedDescription is set
// exactly when Approved is false; use NewApproval and NewRefinement.
type CriticOutput struct {
	Approved           bool
	RefinedDescription *string
	FeedbackSummary    *string
}

// NewApproval builds an approving verdict.
func NewApproval(summary string) CriticOutput {
	return CriticOutput{Approved: true, FeedbackSummary: &summary}
}

// NewRefinement builds a rejecting verdict carrying the replacement description.
func NewRefinement(refined, summary string) CriticOutput {
	return CriticOutput{
		Approved:           false,
		RefinedDescription: &refined,
		FeedbackSummary:    &summary,
	}
}

// Validate checks the approved/refined invariant.
func (c CriticOutput) Validate() error {
	if c.Approved && c.RefinedDescription != nil {
		return NewValidationError("critic", "approved verdict must not carry a refined description")
	}
	if !c.Approved && c.RefinedDescription == nil {
		return NewValidationError("critic", "rejecting verdict must carry a refined description")
	}
	return nil
}

// PipelineResult is returned once per run. Approved=false means the round
// budget ran out; the image is still the last one generated.
type PipelineResult struct {
	RunID       string
	ImageBytes  []byte
	ImagePath   string
	RoundsTaken int
	Approved    bool
	RunDir      string
}

// RunMetadata is the audit record written to run_metadata.json.
type RunMetadata struct {
	RunID          string  `json:"run_id"`
	Brief          string  `json:"brief"`
	Category       string  `json:"category"`
	NumReferences  int     `json:"num_references"`
	LLMModelID     string  `json:"llm_model"`
	ImageModelID   string  `json:"image_model"`
	SlideFormat    string  `json:"slide_format"`
	RoundsTaken    int     `json:"rounds_taken"`
	Approved       bool    `json:"approved"`
	Timestamp      string  `json:"timestamp"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}
