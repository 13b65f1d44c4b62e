package core

import "testing"

func TestCriticOutput_Invariant(t *testing.T) {
	approved := NewApproval("All dimensions passed")
	if !approved.Approved || approved.RefinedDescription != nil {
		t.Errorf("NewApproval() = %+v, want approved without refined description", approved)
	}
	if err := approved.Validate(); err != nil {
		t.Errorf("Validate() on approval: %v", err)
	}

	refined := NewRefinement("full new description", "full new")
	if refined.Approved || refined.RefinedDescription == nil {
		t.Errorf("NewRefinement() = %+v, want rejection with refined description", refined)
	}
	if err := refined.Validate(); err != nil {
		t.Errorf("Validate() on refinement: %v", err)
	}

	text := "x"
	broken := []CriticOutput{
		{Approved: true, RefinedDescription: &text},
		{Approved: false},
	}
	for _, c := range broken {
		if err := c.Validate(); !IsValidationError(err) {
			t.Errorf("Validate(%+v) = %v, want validation error", c, err)
		}
	}
}

func TestNewPlannerOutput(t *testing.T) {
	out := NewPlannerOutput("  three word description \n")
	if out.Description != "three word description" {
		t.Errorf("Description = %q", out.Description)
	}
	if out.WordCount != 3 {
		t.Errorf("WordCount = %d, want 3", out.WordCount)
	}
}

func TestReference_HasImage(t *testing.T) {
	ref := Reference{ID: "r1", Tags: map[string]struct{}{"etl": {}}}
	if ref.HasImage() {
		t.Error("HasImage() = true for text-only reference")
	}
	if !ref.HasTag("etl") || ref.HasTag("ml") {
		t.Error("HasTag() mismatch")
	}
	ref.ImagePayload = []byte{0x89, 'P', 'N', 'G'}
	if !ref.HasImage() {
		t.Error("HasImage() = false with payload")
	}
}
