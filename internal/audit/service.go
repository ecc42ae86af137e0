package audit

import (
	"encoding/json"
	"fmt"

	"lengolf-closing/internal/database"
	"lengolf-closing/internal/models"
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// BuildLog turns options into a row. jsonb columns get the JSON literal
// null instead of an empty string.
func BuildLog(opts LogOptions) models.AuditLog {
	return models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: truncate(opts.Description, 255),
		BeforeData:  toJSON(opts.Before),
		AfterData:   toJSON(opts.After),
	}
}

func WriteLog(opts LogOptions) error {
	log := BuildLog(opts)
	if err := database.DB.Create(&log).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

func toJSON(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
