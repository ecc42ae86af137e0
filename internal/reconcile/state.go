package reconcile

import (
	"lengolf-closing/internal/closing"
	"lengolf-closing/internal/printer"
	"lengolf-closing/internal/variance"
)

type Step int

const (
	StepSummary Step = iota
	StepCash
	StepCredit
	StepReview
	StepPinGate
	StepComplete
	StepLocked
)

var stepNames = [...]string{"summary", "cash", "credit", "review", "pin", "complete", "locked"}

func (s Step) String() string {
	if s >= 0 && int(s) < len(stepNames) {
		return stepNames[s]
	}
	return "unknown"
}

// previous is the step Back returns to. ok is false where Back is a no-op.
func (s Step) previous() (Step, bool) {
	switch s {
	case StepCash, StepCredit, StepReview, StepPinGate:
		return s - 1, true
	}
	return s, false
}

// Draft holds what staff have typed so far. Amounts are kept as typed.
type Draft struct {
	Date             string `json:"selected_date"`
	ActualCash       string `json:"actual_cash"`
	ActualCreditCard string `json:"actual_credit_card"`
	BatchReference   string `json:"credit_card_batch_reference"`
	VarianceNotes    string `json:"variance_notes"`
}

type PrintStatus int

const (
	PrintIdle PrintStatus = iota
	PrintPrinting
	PrintDone
	PrintFailed
)

func (p PrintStatus) String() string {
	switch p {
	case PrintPrinting:
		return "printing"
	case PrintDone:
		return "done"
	case PrintFailed:
		return "failed"
	}
	return "idle"
}

type PrintState struct {
	Status PrintStatus
	Job    *printer.Job
	Err    error
}

// State is a snapshot of a session. Views render it and nothing else.
type State struct {
	Open     bool
	Step     Step
	Draft    Draft
	Summary  *closing.ClosingSummary
	Existing *closing.Reconciliation
	// Err is the inline error of the last command, cleared by the next one.
	Err   error
	Print PrintState
}

// Variances compares the draft with the loaded summary. ok is false until
// a summary is loaded or while an amount does not parse.
func (s State) Variances() (cash, card variance.Result, ok bool) {
	if s.Summary == nil {
		return cash, card, false
	}
	actualCash, err := variance.Parse(s.Draft.ActualCash)
	if err != nil {
		return cash, card, false
	}
	actualCard, err := variance.Parse(s.Draft.ActualCreditCard)
	if err != nil {
		return cash, card, false
	}
	return variance.NewResult(actualCash, s.Summary.ExpectedCash),
		variance.NewResult(actualCard, s.Summary.ExpectedCreditCard), true
}

func (s State) HasVariance() bool {
	cash, card, ok := s.Variances()
	return ok && variance.Any(cash.Amount, card.Amount)
}

func (s State) CanChangeDate() bool {
	return s.Open && s.Step == StepSummary
}

func (s State) CanBack() bool {
	_, ok := s.Step.previous()
	return s.Open && ok
}

func (s State) CanPrint() bool {
	return s.Open && (s.Step == StepComplete || s.Step == StepLocked) &&
		s.Existing != nil && s.Print.Status != PrintPrinting
}
