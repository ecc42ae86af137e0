package reconcile

// Command is one user action. Every transition goes through
// Session.Dispatch with one of the types below.
type Command interface {
	name() string
}

type OpenCmd struct{ Date string }
type AdvanceCmd struct{}
type BackCmd struct{}
type ChangeDateCmd struct{ Date string }
type SetFieldCmd struct {
	Field Field
	Value string
}

// SubmitCmd carries the staff PIN for a single submit call.
type SubmitCmd struct{ PIN string }
type PrintCmd struct{}
type CloseCmd struct{}

func (OpenCmd) name() string       { return "open" }
func (AdvanceCmd) name() string    { return "advance" }
func (BackCmd) name() string       { return "back" }
func (ChangeDateCmd) name() string { return "change_date" }
func (SetFieldCmd) name() string   { return "set_field" }
func (SubmitCmd) name() string     { return "submit" }
func (PrintCmd) name() string      { return "print" }
func (CloseCmd) name() string      { return "close" }

// Field names a draft input.
type Field string

const (
	FieldActualCash       Field = "actual_cash"
	FieldActualCreditCard Field = "actual_credit_card"
	FieldBatchReference   Field = "credit_card_batch_reference"
	FieldVarianceNotes    Field = "variance_notes"
)

// step is where the field is edited.
func (f Field) step() (Step, bool) {
	switch f {
	case FieldActualCash:
		return StepCash, true
	case FieldActualCreditCard, FieldBatchReference:
		return StepCredit, true
	case FieldVarianceNotes:
		return StepReview, true
	}
	return 0, false
}
