package audit

import (
	"strings"
	"testing"

	"lengolf-closing/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestBuildLog(t *testing.T) {
	log := BuildLog(LogOptions{
		UserID:      3,
		UserName:    "Dolly",
		EntityType:  "reconciliation",
		EntityID:    12,
		Action:      models.AuditActionClose,
		Description: "Day closed",
		After:       map[string]any{"id": 12, "closing_date": "2026-10-15"},
	})

	assert.Equal(t, "null", log.BeforeData)
	assert.JSONEq(t, `{"id":12,"closing_date":"2026-10-15"}`, log.AfterData)
	assert.Equal(t, models.AuditActionClose, log.Action)
}

func TestBuildLogTruncatesDescription(t *testing.T) {
	log := BuildLog(LogOptions{Description: strings.Repeat("ก", 300)})
	assert.Len(t, []rune(log.Description), 255)
}

func TestBuildLogUnmarshalableIsNull(t *testing.T) {
	log := BuildLog(LogOptions{After: make(chan int)})
	assert.Equal(t, "null", log.AfterData)
}
