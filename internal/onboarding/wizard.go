// Package onboarding models the invitation wizard and the pending
// invitation batches that back its manual retry.
package onboarding

import (
	"fmt"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
)

// Step is a wizard step.
type Step string

const (
	StepOwners  Step = "owners"
	StepRenters Step = "renters"
	StepDone    Step = "done"
)

// Role returns the backend role invited at this step.
func (s Step) Role() (domain.Role, error) {
	switch s {
	case StepOwners:
		return domain.RoleOwner, nil
	case StepRenters:
		return domain.RoleResident, nil
	}
	return 0, &domain.ErrValidation{Field: "step", Message: fmt.Sprintf("step %q does not invite anyone", s)}
}

// StepResult is the outcome shown when a step completes: counts only.
type StepResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// WizardState is the persisted wizard progress.
type WizardState struct {
	OwnersInvited  bool                `json:"owners_invited"`
	RentersInvited bool                `json:"renters_invited"`
	Current        Step                `json:"current"`
	Skipped        []Step              `json:"skipped,omitempty"`
	Results        map[Step]StepResult `json:"results,omitempty"`
}

// Wizard walks owners -> renters -> done. Either step may be skipped and a
// step advances whether or not every invitation in it succeeded.
type Wizard struct {
	state WizardState
}

// NewWizard starts at the owners step.
func NewWizard() *Wizard {
	return &Wizard{state: WizardState{Current: StepOwners, Results: map[Step]StepResult{}}}
}

// RestoreWizard resumes from a saved state.
func RestoreWizard(s WizardState) *Wizard {
	if s.Current == "" {
		s.Current = StepOwners
	}
	if s.Results == nil {
		s.Results = map[Step]StepResult{}
	}
	return &Wizard{state: s}
}

// State returns a copy of the wizard state.
func (w *Wizard) State() WizardState {
	s := w.state
	s.Skipped = append([]Step(nil), w.state.Skipped...)
	s.Results = make(map[Step]StepResult, len(w.state.Results))
	for k, v := range w.state.Results {
		s.Results[k] = v
	}
	return s
}

// Current returns the active step.
func (w *Wizard) Current() Step { return w.state.Current }

// Done reports whether the wizard has finished.
func (w *Wizard) Done() bool { return w.state.Current == StepDone }

// Complete records the outcome of the current step and advances.
func (w *Wizard) Complete(step Step, result StepResult) error {
	if err := w.expect(step); err != nil {
		return err
	}
	switch step {
	case StepOwners:
		w.state.OwnersInvited = true
	case StepRenters:
		w.state.RentersInvited = true
	}
	w.state.Results[step] = result
	w.advance()
	return nil
}

// Skip advances past the current step without inviting anyone.
func (w *Wizard) Skip(step Step) error {
	if err := w.expect(step); err != nil {
		return err
	}
	w.state.Skipped = append(w.state.Skipped, step)
	w.advance()
	return nil
}

func (w *Wizard) expect(step Step) error {
	if w.Done() {
		return &domain.ErrPrecondition{Message: "invitation wizard is already complete"}
	}
	if step != w.state.Current {
		return &domain.ErrPrecondition{Message: fmt.Sprintf("current step is %s, not %s", w.state.Current, step)}
	}
	return nil
}

func (w *Wizard) advance() {
	switch w.state.Current {
	case StepOwners:
		w.state.Current = StepRenters
	default:
		w.state.Current = StepDone
	}
}
