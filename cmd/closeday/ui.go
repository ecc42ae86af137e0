package main

import (
	"context"
	"fmt"
	"strings"

	"lengolf-closing/internal/reconcile"
	"lengolf-closing/internal/variance"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// stateMsg carries a session snapshot. final marks the end of a dispatch;
// snapshots pushed while a command runs are not final.
type stateMsg struct {
	state reconcile.State
	err   error
	final bool
}

type keyMap struct {
	Next       key.Binding
	Back       key.Binding
	SwitchFld  key.Binding
	ChangeDate key.Binding
	Print      key.Binding
	Close      key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	Next:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "next")),
	Back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	SwitchFld:  key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch field")),
	ChangeDate: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "change date")),
	Print:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "print")),
	Close:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "close")),
	Quit:       key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle = lipgloss.NewStyle().Width(20)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type model struct {
	ctx      context.Context
	session  *reconcile.Session
	openDate string
	canPrint bool

	state   reconcile.State
	lastErr error
	busy    bool
	shown   reconcile.Step

	editingDate bool
	date        textinput.Model
	amount      textinput.Model
	batch       textinput.Model
	notes       textinput.Model
	pin         textinput.Model
}

func newInput(placeholder string, limit int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Prompt = "> "
	return in
}

func newModel(ctx context.Context, s *reconcile.Session, date string, canPrint bool) model {
	m := model{
		ctx:      ctx,
		session:  s,
		openDate: date,
		canPrint: canPrint,
		shown:    -1,
		date:     newInput("YYYY-MM-DD", 10),
		amount:   newInput("0.00", 16),
		batch:    newInput("optional", 64),
		notes:    newInput("why the count differs", 2000),
		pin:      newInput("PIN", 8),
	}
	m.pin.EchoMode = textinput.EchoPassword
	m.pin.EchoCharacter = '*'
	return m
}

func (m model) Init() tea.Cmd {
	_, cmd := m.dispatch(reconcile.OpenCmd{Date: m.openDate})
	return cmd
}

// dispatch runs cmds in order on the session, stopping at the first error.
// Keys are ignored until the final snapshot arrives.
func (m model) dispatch(cmds ...reconcile.Command) (model, tea.Cmd) {
	m.busy = true
	m.lastErr = nil
	s, ctx := m.session, m.ctx
	return m, func() tea.Msg {
		var st reconcile.State
		var err error
		for _, c := range cmds {
			st, err = s.Dispatch(ctx, c)
			if err != nil {
				break
			}
		}
		return stateMsg{state: st, err: err, final: true}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = msg.state
		if msg.final {
			m.busy = false
			m.lastErr = msg.err
			if !m.state.Open {
				return m, tea.Quit
			}
		}
		return m.syncInputs(), nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

// syncInputs focuses the input of a newly entered step and fills it from
// the draft.
func (m model) syncInputs() model {
	if m.state.Step == m.shown {
		return m
	}
	m.shown = m.state.Step
	for _, in := range []*textinput.Model{&m.date, &m.amount, &m.batch, &m.notes, &m.pin} {
		in.Blur()
	}
	d := m.state.Draft
	switch m.state.Step {
	case reconcile.StepCash:
		m.amount.SetValue(d.ActualCash)
		m.amount.Focus()
	case reconcile.StepCredit:
		m.amount.SetValue(d.ActualCreditCard)
		m.batch.SetValue(d.BatchReference)
		m.amount.Focus()
	case reconcile.StepReview:
		m.notes.SetValue(d.VarianceNotes)
		m.notes.Focus()
	case reconcile.StepPinGate:
		m.pin.Reset()
		m.pin.Focus()
	}
	return m
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.state

	if m.editingDate {
		switch {
		case key.Matches(msg, keys.Next):
			m.editingDate = false
			m.date.Blur()
			return m.dispatch(reconcile.ChangeDateCmd{Date: m.date.Value()})
		case key.Matches(msg, keys.Back):
			m.editingDate = false
			m.date.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.date, cmd = m.date.Update(msg)
		return m, cmd
	}

	if key.Matches(msg, keys.Back) && st.CanBack() {
		return m.dispatch(reconcile.BackCmd{})
	}

	switch st.Step {
	case reconcile.StepSummary:
		switch {
		case key.Matches(msg, keys.Next):
			return m.dispatch(reconcile.AdvanceCmd{})
		case key.Matches(msg, keys.ChangeDate) && st.CanChangeDate():
			m.editingDate = true
			m.date.SetValue(st.Draft.Date)
			m.date.Focus()
			return m, textinput.Blink
		case key.Matches(msg, keys.Close):
			return m.dispatch(reconcile.CloseCmd{})
		}
		return m, nil

	case reconcile.StepCash:
		if key.Matches(msg, keys.Next) {
			return m.dispatch(
				reconcile.SetFieldCmd{Field: reconcile.FieldActualCash, Value: m.amount.Value()},
				reconcile.AdvanceCmd{},
			)
		}
		var cmd tea.Cmd
		m.amount, cmd = m.amount.Update(msg)
		return m, cmd

	case reconcile.StepCredit:
		switch {
		case key.Matches(msg, keys.Next):
			return m.dispatch(
				reconcile.SetFieldCmd{Field: reconcile.FieldActualCreditCard, Value: m.amount.Value()},
				reconcile.SetFieldCmd{Field: reconcile.FieldBatchReference, Value: m.batch.Value()},
				reconcile.AdvanceCmd{},
			)
		case key.Matches(msg, keys.SwitchFld):
			if m.amount.Focused() {
				m.amount.Blur()
				m.batch.Focus()
			} else {
				m.batch.Blur()
				m.amount.Focus()
			}
			return m, nil
		}
		var cmd tea.Cmd
		if m.batch.Focused() {
			m.batch, cmd = m.batch.Update(msg)
		} else {
			m.amount, cmd = m.amount.Update(msg)
		}
		return m, cmd

	case reconcile.StepReview:
		if key.Matches(msg, keys.Next) {
			return m.dispatch(
				reconcile.SetFieldCmd{Field: reconcile.FieldVarianceNotes, Value: m.notes.Value()},
				reconcile.AdvanceCmd{},
			)
		}
		var cmd tea.Cmd
		m.notes, cmd = m.notes.Update(msg)
		return m, cmd

	case reconcile.StepPinGate:
		if key.Matches(msg, keys.Next) {
			pin := m.pin.Value()
			m.pin.Reset()
			return m.dispatch(reconcile.SubmitCmd{PIN: pin})
		}
		var cmd tea.Cmd
		m.pin, cmd = m.pin.Update(msg)
		return m, cmd

	case reconcile.StepComplete, reconcile.StepLocked:
		switch {
		case key.Matches(msg, keys.Print) && m.canPrint && st.CanPrint():
			return m.dispatch(reconcile.PrintCmd{})
		case key.Matches(msg, keys.Close):
			return m.dispatch(reconcile.CloseCmd{})
		}
	}
	return m, nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func row(label, value string) string {
	return labelStyle.Render(label) + value + "\n"
}

func varianceLine(r variance.Result) string {
	switch r.Status {
	case variance.Over:
		return warnStyle.Render("+" + money(r.Amount) + " over")
	case variance.Short:
		return errStyle.Render(money(r.Amount) + " short")
	}
	return okStyle.Render("balanced")
}

func (m model) View() string {
	st := m.state
	var b strings.Builder

	b.WriteString(titleStyle.Render("Day closing " + st.Draft.Date))
	b.WriteString(dimStyle.Render("  [" + st.Step.String() + "]"))
	b.WriteString("\n\n")

	var body strings.Builder
	switch st.Step {
	case reconcile.StepSummary:
		if m.editingDate {
			body.WriteString("Close which date?\n" + m.date.View() + "\n")
		} else if s := st.Summary; s != nil {
			body.WriteString(row("Expected cash", money(s.ExpectedCash)))
			body.WriteString(row("Expected card", money(s.ExpectedCreditCard)))
			body.WriteString(row("QR payments", money(s.QRPaymentsTotal)))
			body.WriteString(row("Other payments", money(s.OtherPaymentsTotal)))
			body.WriteString(row("Transactions", fmt.Sprint(s.TransactionCount)))
			if s.VoidedCount > 0 {
				body.WriteString(row("Voided", fmt.Sprintf("%d (%s)", s.VoidedCount, money(s.VoidedAmount))))
			}
			body.WriteString(row("Total sales", money(s.TotalSales)))
		} else if m.busy {
			body.WriteString(dimStyle.Render("Loading day summary..."))
		} else {
			body.WriteString(dimStyle.Render("No summary loaded. Press d to retry."))
		}

	case reconcile.StepCash:
		body.WriteString(row("Expected cash", money(st.Summary.ExpectedCash)))
		body.WriteString("Counted cash in drawer\n" + m.amount.View())

	case reconcile.StepCredit:
		body.WriteString(row("Expected card", money(st.Summary.ExpectedCreditCard)))
		body.WriteString("Card terminal settlement total\n" + m.amount.View() + "\n")
		body.WriteString("Batch reference\n" + m.batch.View())

	case reconcile.StepReview, reconcile.StepPinGate:
		cash, card, _ := st.Variances()
		body.WriteString(row("Cash", st.Draft.ActualCash+"  "+varianceLine(cash)))
		body.WriteString(row("Card", st.Draft.ActualCreditCard+"  "+varianceLine(card)))
		if st.Step == reconcile.StepReview {
			label := "Notes"
			if st.HasVariance() {
				label += " (required)"
			}
			body.WriteString("\n" + label + "\n" + m.notes.View())
		} else {
			body.WriteString("\nStaff PIN\n" + m.pin.View())
		}

	case reconcile.StepComplete, reconcile.StepLocked:
		if r := st.Existing; r != nil {
			if st.Step == reconcile.StepLocked {
				body.WriteString(warnStyle.Render("This date is already closed.") + "\n\n")
			} else {
				body.WriteString(okStyle.Render("Day closed.") + "\n\n")
			}
			body.WriteString(row("Report", fmt.Sprintf("#%d", r.ID)))
			body.WriteString(row("Closed by", r.ClosedByStaffName))
			body.WriteString(row("Cash variance", money(r.CashVariance)))
			body.WriteString(row("Card variance", money(r.CreditCardVariance)))
		}
		switch st.Print.Status {
		case reconcile.PrintPrinting:
			body.WriteString("\n" + dimStyle.Render("Printing..."))
		case reconcile.PrintDone:
			if job := st.Print.Job; job != nil {
				body.WriteString("\n" + okStyle.Render(fmt.Sprintf("Printed via %s (%d chunks)", job.Transport, job.Chunks)))
			}
		case reconcile.PrintFailed:
			body.WriteString("\n" + errStyle.Render("Print failed: "+st.Print.Err.Error()))
		}
	}
	b.WriteString(boxStyle.Render(body.String()))
	b.WriteString("\n")

	if m.lastErr != nil {
		b.WriteString(errStyle.Render(m.lastErr.Error()) + "\n")
	}
	b.WriteString(dimStyle.Render(m.help()))
	return b.String()
}

func (m model) help() string {
	st := m.state
	var parts []string
	add := func(k key.Binding) {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	switch st.Step {
	case reconcile.StepSummary:
		add(keys.Next)
		if st.CanChangeDate() {
			add(keys.ChangeDate)
		}
		add(keys.Close)
	case reconcile.StepCredit:
		add(keys.Next)
		add(keys.SwitchFld)
		add(keys.Back)
	case reconcile.StepComplete, reconcile.StepLocked:
		if m.canPrint && st.CanPrint() {
			add(keys.Print)
		}
		add(keys.Close)
	default:
		add(keys.Next)
		add(keys.Back)
	}
	add(keys.Quit)
	return strings.Join(parts, "  ")
}
