package auth

import (
	"context"
	"errors"
	"fmt"

	"lengolf-closing/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidPIN = errors.New("invalid staff pin")
	ErrPINTaken   = errors.New("pin already belongs to another staff member")
)

func HashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// MatchPIN returns the first candidate whose PIN hash matches pin.
// Candidates without a PIN or inactive ones never match.
func MatchPIN(candidates []models.User, pin string) (*models.User, error) {
	if pin == "" {
		return nil, ErrInvalidPIN
	}
	for i := range candidates {
		u := &candidates[i]
		if !u.Active || u.PinHash == nil {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(*u.PinHash), []byte(pin)) == nil {
			return u, nil
		}
	}
	return nil, ErrInvalidPIN
}

// PINVerifier checks a PIN against every active staff member that has one.
// bcrypt hashes cannot be looked up, so the staff list is scanned.
type PINVerifier struct {
	DB *gorm.DB
}

func (v PINVerifier) VerifyPIN(ctx context.Context, pin string) (*models.User, error) {
	staff, err := v.holders(ctx)
	if err != nil {
		return nil, err
	}
	return MatchPIN(staff, pin)
}

// CheckAvailable returns ErrPINTaken when pin matches an active staff
// member other than owner. owner is 0 for a user not created yet.
func (v PINVerifier) CheckAvailable(ctx context.Context, pin string, owner uint) error {
	staff, err := v.holders(ctx)
	if err != nil {
		return err
	}
	others := make([]models.User, 0, len(staff))
	for _, u := range staff {
		if u.ID != owner {
			others = append(others, u)
		}
	}
	if _, err := MatchPIN(others, pin); err == nil {
		return ErrPINTaken
	}
	return nil
}

func (v PINVerifier) holders(ctx context.Context) ([]models.User, error) {
	var staff []models.User
	if err := v.DB.WithContext(ctx).
		Where("active = ? AND pin_hash IS NOT NULL", true).
		Order("id asc").
		Find(&staff).Error; err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}
	return staff, nil
}
