// Package commission pays the unilevel plan: each completed purchase
// credits up to 15 levels of ancestors, skipping inactive members level
// by level (an inactive level forfeits its share, it never rolls up).
package commission

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/stanmart1/rest-empire-sub000/internal/hierarchy"
	"github.com/stanmart1/rest-empire-sub000/internal/logger"
	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"github.com/stanmart1/rest-empire-sub000/internal/monitoring"
	"github.com/stanmart1/rest-empire-sub000/internal/notify"
	"github.com/stanmart1/rest-empire-sub000/internal/plan"
	"github.com/stanmart1/rest-empire-sub000/internal/rank"
	"github.com/stanmart1/rest-empire-sub000/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ActivityOracle answers whether a member currently counts as active
// for compression purposes. The production oracle lives outside the
// engine; DBOracle is the default in-process implementation.
type ActivityOracle interface {
	IsActive(memberID uint) (bool, error)
}

// DBOracle reads the member's activity flag. Distribute rebinds it to
// the distribution transaction so the check never waits on a second
// pooled connection while the transaction holds the first.
type DBOracle struct {
	DB *gorm.DB
}

func (o *DBOracle) IsActive(memberID uint) (bool, error) {
	var member models.Member
	if err := o.DB.Select("is_active").First(&member, memberID).Error; err != nil {
		return false, err
	}
	return member.IsActive, nil
}

// PurchaseInput is a confirmed, settled purchase as reported by the
// payment collaborator.
type PurchaseInput struct {
	BuyerID   uint
	Amount    decimal.Decimal
	Currency  string
	Reference string
}

var hundred = decimal.NewFromInt(100)

// Distribute records the purchase, propagates its turnover up the tree
// and credits per-level commissions, all in one transaction. A replayed
// reference returns the stored purchase untouched, however the replay
// raced. A nil oracle falls back to the member activity flag, read
// through the distribution transaction. After commit, every ancestor is
// re-evaluated for rank and notifications fire.
func Distribute(db *gorm.DB, snap *plan.Snapshot, oracle ActivityOracle, in PurchaseInput, notifier notify.Notifier) (*models.Purchase, []models.Bonus, error) {
	purchase := models.Purchase{
		MemberID:  in.BuyerID,
		Amount:    in.Amount,
		Currency:  in.Currency,
		Reference: in.Reference,
		Status:    models.PurchaseCompleted,
	}
	var bonuses []models.Bonus
	var ancestors []models.HierarchyEdge

	err := db.Transaction(func(tx *gorm.DB) error {
		// Creating first claims the reference: a concurrent replay
		// loses here with a duplicate-key error and resolves below.
		if err := tx.Create(&purchase).Error; err != nil {
			return err
		}

		ora := oracle
		if _, isDB := ora.(*DBOracle); isDB || ora == nil {
			ora = &DBOracle{DB: tx}
		}
		if err := hierarchy.ApplyTurnoverTx(tx, in.BuyerID, in.Amount); err != nil {
			return err
		}

		var err error
		ancestors, err = hierarchy.Ancestors(tx, in.BuyerID, 0)
		if err != nil {
			return err
		}

		credits, err := levelCredits(tx, snap, ora, &purchase, ancestors)
		if err != nil {
			return err
		}
		// Ascending recipient id keeps two overlapping distributions
		// from locking member rows in opposite orders.
		sort.Slice(credits, func(i, j int) bool { return credits[i].MemberID < credits[j].MemberID })
		for i := range credits {
			if err := tx.Create(&credits[i]).Error; err != nil {
				return err
			}
			if err := store.AdjustBalance(tx, credits[i].MemberID, credits[i].Currency, credits[i].Amount, true); err != nil {
				return err
			}
		}
		bonuses = credits
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing models.Purchase
			if ferr := db.Where("reference = ?", in.Reference).First(&existing).Error; ferr == nil {
				return &existing, nil, nil
			}
		}
		return nil, nil, fmt.Errorf("distribute purchase %s: %w", in.Reference, err)
	}

	monitoring.CommissionsDistributed.Inc()
	for _, b := range bonuses {
		monitoring.BonusesCredited.WithLabelValues(string(b.Kind), b.Currency).Inc()
		if notifier != nil {
			notifier.BonusCredited(b)
		}
	}
	logger.Log.Info("commission distributed",
		zap.String("reference", in.Reference),
		zap.Uint("buyer_id", in.BuyerID),
		zap.Int("bonuses", len(bonuses)))

	for _, edge := range ancestors {
		if _, err := rank.Evaluate(db, snap, edge.AncestorID, notifier); err != nil {
			logger.Log.Error("rank evaluation failed",
				zap.Uint("member_id", edge.AncestorID), zap.Error(err))
		}
	}
	return &purchase, bonuses, nil
}

// levelCredits resolves who earns what. Levels are independent: the
// ancestor at an exact depth either earns that level or the level pays
// nobody. Past MaxLevels the first active ancestor holding the
// qualifying rank earns the infinity bonus, when configured.
func levelCredits(tx *gorm.DB, snap *plan.Snapshot, oracle ActivityOracle, purchase *models.Purchase, ancestors []models.HierarchyEdge) ([]models.Bonus, error) {
	byDepth := map[int][]uint{}
	for _, e := range ancestors {
		byDepth[e.Depth] = append(byDepth[e.Depth], e.AncestorID)
	}

	var credits []models.Bonus
	for level := 1; level <= plan.MaxLevels; level++ {
		pct := snap.LevelPercent(level)
		if !pct.IsPositive() {
			continue
		}
		recipient, ok, err := firstActive(oracle, byDepth[level])
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		amount := purchase.Amount.Mul(pct).Div(hundred)
		credits = append(credits, models.NewCommissionBonus(
			recipient, purchase.MemberID, purchase.ID, level, amount, purchase.Currency))
	}

	if snap.InfinityPercent.IsPositive() {
		recipient, ok, err := infinityRecipient(tx, snap, oracle, ancestors)
		if err != nil {
			return nil, err
		}
		if ok {
			amount := purchase.Amount.Mul(snap.InfinityPercent).Div(hundred)
			credits = append(credits, models.NewInfinityBonus(
				recipient, purchase.MemberID, purchase.ID, amount, purchase.Currency))
		}
	}
	return credits, nil
}

func firstActive(oracle ActivityOracle, candidates []uint) (uint, bool, error) {
	for _, id := range candidates {
		active, err := oracle.IsActive(id)
		if err != nil {
			return 0, false, err
		}
		if active {
			return id, true, nil
		}
	}
	return 0, false, nil
}

// infinityRecipient finds the nearest ancestor past MaxLevels that is
// both active and holds the qualifying leader rank.
func infinityRecipient(tx *gorm.DB, snap *plan.Snapshot, oracle ActivityOracle, ancestors []models.HierarchyEdge) (uint, bool, error) {
	for _, e := range ancestors {
		if e.Depth <= plan.MaxLevels {
			continue
		}
		active, err := oracle.IsActive(e.AncestorID)
		if err != nil {
			return 0, false, err
		}
		if !active {
			continue
		}
		var member models.Member
		if err := tx.Select("rank_level").First(&member, e.AncestorID).Error; err != nil {
			return 0, false, err
		}
		if member.RankLevel < snap.InfinityMinRankLevel {
			continue
		}
		return e.AncestorID, true, nil
	}
	return 0, false, nil
}

// Reverse cancels every bonus sourced from the purchase, claws the
// amounts back and unwinds the turnover, marking the purchase refunded.
// A second call on an already refunded purchase returns
// ErrAlreadyProcessed with no writes.
func Reverse(db *gorm.DB, purchaseID uint) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		var purchase models.Purchase
		if err := store.Locked(tx).First(&purchase, purchaseID).Error; err != nil {
			return err
		}
		if purchase.Status == models.PurchaseRefunded {
			return models.ErrAlreadyProcessed
		}

		var bonuses []models.Bonus
		err := tx.Where("purchase_id = ? AND status <> ?", purchaseID, models.BonusCancelled).
			Order("member_id asc").Find(&bonuses).Error
		if err != nil {
			return err
		}
		for _, b := range bonuses {
			err := tx.Model(&models.Bonus{}).Where("id = ?", b.ID).
				Update("status", models.BonusCancelled).Error
			if err != nil {
				return err
			}
			if err := store.AdjustBalance(tx, b.MemberID, b.Currency, b.Amount.Neg(), true); err != nil {
				return err
			}
		}

		if err := hierarchy.ApplyTurnoverTx(tx, purchase.MemberID, purchase.Amount.Neg()); err != nil {
			return err
		}
		return tx.Model(&models.Purchase{}).Where("id = ?", purchaseID).
			Update("status", models.PurchaseRefunded).Error
	})
	if err != nil {
		return err
	}
	logger.Log.Info("purchase reversed", zap.Uint("purchase_id", purchaseID))
	return nil
}
