package main

import (
	"context"
	"testing"

	"lengolf-closing/internal/closing"
	"lengolf-closing/internal/reconcile"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(model)
	require.True(t, ok)
	return out, cmd
}

func TestEnteringCashStepFillsAndFocusesInput(t *testing.T) {
	m := newModel(context.Background(), nil, "", true)
	st := reconcile.State{
		Open:    true,
		Step:    reconcile.StepCash,
		Draft:   reconcile.Draft{Date: "2026-10-16", ActualCash: "950"},
		Summary: &closing.ClosingSummary{ExpectedCash: decimal.NewFromInt(1000)},
	}

	m, cmd := update(t, m, stateMsg{state: st, final: true})
	assert.Nil(t, cmd)
	assert.Equal(t, "950", m.amount.Value())
	assert.True(t, m.amount.Focused())
	assert.Contains(t, m.View(), "Expected cash")
	assert.Contains(t, m.View(), "1000.00")
}

func TestClosedSessionQuits(t *testing.T) {
	m := newModel(context.Background(), nil, "", true)
	_, cmd := update(t, m, stateMsg{state: reconcile.State{}, final: true})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestIntermediateSnapshotKeepsBusy(t *testing.T) {
	m := newModel(context.Background(), nil, "", true)
	m.busy = true
	st := reconcile.State{Open: true, Step: reconcile.StepComplete, Print: reconcile.PrintState{Status: reconcile.PrintPrinting}}

	m, _ = update(t, m, stateMsg{state: st})
	assert.True(t, m.busy)
	assert.Contains(t, m.View(), "Printing...")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	assert.Nil(t, cmd)
}

func TestHelpFollowsStep(t *testing.T) {
	m := newModel(context.Background(), nil, "", true)
	m.state = reconcile.State{Open: true, Step: reconcile.StepSummary}
	assert.Contains(t, m.help(), "d change date")

	m.state = reconcile.State{
		Open:     true,
		Step:     reconcile.StepLocked,
		Existing: &closing.Reconciliation{ID: 7},
	}
	assert.Contains(t, m.help(), "p print")
	assert.NotContains(t, m.help(), "esc back")

	m.canPrint = false
	assert.NotContains(t, m.help(), "p print")
}

func TestLockedViewShowsExistingReport(t *testing.T) {
	m := newModel(context.Background(), nil, "", true)
	m, _ = update(t, m, stateMsg{final: true, state: reconcile.State{
		Open:  true,
		Step:  reconcile.StepLocked,
		Draft: reconcile.Draft{Date: "2026-10-16"},
		Existing: &closing.Reconciliation{
			ID:                12,
			ClosedByStaffName: "Dolly",
			CashVariance:      decimal.NewFromInt(-50),
		},
	}})

	v := m.View()
	assert.Contains(t, v, "already closed")
	assert.Contains(t, v, "#12")
	assert.Contains(t, v, "Dolly")
	assert.Contains(t, v, "-50.00")
}
