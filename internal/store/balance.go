package store

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"gorm.io/gorm"
)

// AdjustBalance moves a member's balance by delta under a row lock,
// inside the caller's transaction. Callers validate sufficiency before
// debiting; reversal flows may pass transiently uncovered debits.
// addToEarnings also moves total_earnings by delta (credits and their
// reversals).
func AdjustBalance(tx *gorm.DB, memberID uint, currency string, delta decimal.Decimal, addToEarnings bool) error {
	var member models.Member
	if err := Locked(tx).First(&member, memberID).Error; err != nil {
		return fmt.Errorf("lock member %d: %w", memberID, err)
	}

	col := models.BalanceColumn(currency)
	updates := map[string]any{
		col: gorm.Expr(col+" + ?", delta),
	}
	if addToEarnings {
		updates["total_earnings"] = gorm.Expr("total_earnings + ?", delta)
	}
	return tx.Model(&models.Member{}).Where("id = ?", memberID).Updates(updates).Error
}
