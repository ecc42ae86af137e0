package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "cash"        // counted in the drawer
	PaymentMethodCreditCard PaymentMethod = "credit_card" // card terminal
	PaymentMethodQR         PaymentMethod = "qr"          // PromptPay / QR transfer
	PaymentMethodOther      PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCreditCard, PaymentMethodQR, PaymentMethodOther:
		return true
	}
	return false
}

type Sale struct {
	ID          uint            `gorm:"primaryKey"`
	SaleDate    time.Time       `gorm:"type:date;index;not null"` // day bucket
	Method      PaymentMethod   `gorm:"size:20;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Description string          `gorm:"size:255"`
	Voided      bool            `gorm:"not null;default:false;index"`
	VoidReason  string          `gorm:"size:255"`
	VoidedAt    *time.Time
	RecordedBy  uint
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
