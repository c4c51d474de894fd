package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BonusKind is a closed set; new kinds require a new constructor below.
type BonusKind string

const (
	BonusCommission       BonusKind = "commission"
	BonusRank             BonusKind = "rank_bonus"
	BonusInfinity         BonusKind = "infinity_bonus"
	BonusManualAdjustment BonusKind = "manual_adjustment"
)

type BonusStatus string

const (
	BonusPending   BonusStatus = "pending"
	BonusPaid      BonusStatus = "paid"
	BonusCancelled BonusStatus = "cancelled"
)

// Bonus is an immutable award record. Rows are only ever created, or
// flipped to cancelled when the originating purchase is refunded.
// The pointer fields are populated per kind: commission and infinity
// bonuses carry SourceMemberID/PurchaseID (and Level for commission),
// rank bonuses carry RankLevel, manual adjustments carry none.
type Bonus struct {
	gorm.Model
	Kind           BonusKind       `gorm:"size:30;not null;index"`
	MemberID       uint            `gorm:"index;not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	Currency       string          `gorm:"size:3;not null"`
	Status         BonusStatus     `gorm:"size:20;not null;index"`
	SourceMemberID *uint           `gorm:"index"`
	PurchaseID     *uint           `gorm:"index"`
	Level          *int
	RankLevel      *int
	Note           string `gorm:"size:255"`
}

// NewCommissionBonus builds a level-N unilevel commission credit.
func NewCommissionBonus(recipient, source, purchaseID uint, level int, amount decimal.Decimal, currency string) Bonus {
	return Bonus{
		Kind:           BonusCommission,
		MemberID:       recipient,
		Amount:         amount,
		Currency:       currency,
		Status:         BonusPaid,
		SourceMemberID: &source,
		PurchaseID:     &purchaseID,
		Level:          &level,
	}
}

// NewRankBonus builds the one-time award for reaching a rank.
func NewRankBonus(recipient uint, rankLevel int, amount decimal.Decimal, currency string) Bonus {
	return Bonus{
		Kind:      BonusRank,
		MemberID:  recipient,
		Amount:    amount,
		Currency:  currency,
		Status:    BonusPaid,
		RankLevel: &rankLevel,
	}
}

// NewInfinityBonus builds the beyond-depth commission for qualified leaders.
func NewInfinityBonus(recipient, source, purchaseID uint, amount decimal.Decimal, currency string) Bonus {
	return Bonus{
		Kind:           BonusInfinity,
		MemberID:       recipient,
		Amount:         amount,
		Currency:       currency,
		Status:         BonusPaid,
		SourceMemberID: &source,
		PurchaseID:     &purchaseID,
	}
}

// NewManualAdjustment builds an admin-initiated balance correction.
func NewManualAdjustment(recipient uint, amount decimal.Decimal, currency, note string) Bonus {
	return Bonus{
		Kind:     BonusManualAdjustment,
		MemberID: recipient,
		Amount:   amount,
		Currency: currency,
		Status:   BonusPaid,
		Note:     note,
	}
}
