// Package rank advances members along the configured rank ladder.
// Ranks are sticky: evaluation only ever moves forward, and each
// (member, rank) pair is awarded its bonus at most once.
package rank

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stanmart1/rest-empire-sub000/internal/hierarchy"
	"github.com/stanmart1/rest-empire-sub000/internal/legs"
	"github.com/stanmart1/rest-empire-sub000/internal/logger"
	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"github.com/stanmart1/rest-empire-sub000/internal/notify"
	"github.com/stanmart1/rest-empire-sub000/internal/plan"
	"github.com/stanmart1/rest-empire-sub000/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Evaluate walks the member up the ladder one rung at a time until a
// rung's thresholds are not met. All four thresholds must hold
// simultaneously for an advance; a single large purchase can advance a
// member several rungs in one call. Returns the ranks achieved.
func Evaluate(db *gorm.DB, snap *plan.Snapshot, memberID uint, notifier notify.Notifier) ([]models.Rank, error) {
	var achieved []models.Rank
	for {
		var member models.Member
		if err := db.First(&member, memberID).Error; err != nil {
			return achieved, err
		}
		next := snap.RankAfter(member.RankLevel)
		if next == nil {
			return achieved, nil
		}

		qualified, err := qualifies(db, memberID, next)
		if err != nil {
			return achieved, err
		}
		if !qualified {
			return achieved, nil
		}

		if err := advance(db, &member, next); err != nil {
			return achieved, err
		}
		achieved = append(achieved, *next)
		logger.Log.Info("rank advanced",
			zap.Uint("member_id", memberID),
			zap.String("rank", next.Name),
			zap.Int("level", next.Level))
		if notifier != nil {
			notifier.RankAchieved(memberID, next.Name)
		}
	}
}

func qualifies(db *gorm.DB, memberID uint, r *models.Rank) (bool, error) {
	self, err := hierarchy.SelfEdge(db, memberID)
	if err != nil {
		return false, err
	}
	bd, err := legs.Compute(db, memberID)
	if err != nil {
		return false, err
	}
	return self.TotalTurnover.GreaterThanOrEqual(r.TotalThreshold) &&
		bd.FirstTurnover().GreaterThanOrEqual(r.FirstLegThreshold) &&
		bd.SecondTurnover().GreaterThanOrEqual(r.SecondLegThreshold) &&
		bd.OtherTurnover.GreaterThanOrEqual(r.OtherLegsThreshold), nil
}

// advance moves the member onto the rank and pays the one-time bonus,
// all in one transaction. The bonus is existence-checked so a replayed
// evaluation never pays twice.
func advance(db *gorm.DB, member *models.Member, r *models.Rank) error {
	return db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		err := tx.Model(&models.Member{}).Where("id = ?", member.ID).Updates(map[string]any{
			"current_rank":     r.Name,
			"rank_level":       r.Level,
			"rank_achieved_at": now,
		}).Error
		if err != nil {
			return err
		}

		var existing int64
		err = tx.Model(&models.Bonus{}).
			Where("member_id = ? AND kind = ? AND rank_level = ? AND status <> ?",
				member.ID, models.BonusRank, r.Level, models.BonusCancelled).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 || !r.BonusAmount.IsPositive() {
			return nil
		}

		bonus := models.NewRankBonus(member.ID, r.Level, r.BonusAmount, r.BonusCurrency)
		if err := tx.Create(&bonus).Error; err != nil {
			return fmt.Errorf("create rank bonus: %w", err)
		}
		return store.AdjustBalance(tx, member.ID, r.BonusCurrency, r.BonusAmount, true)
	})
}

// Report is the member's standing against the next rank. Ratios are
// percentages capped at 100; Overall is the smallest of the four, the
// binding constraint.
type Report struct {
	CurrentRank string
	NextRank    string
	Total       decimal.Decimal
	FirstLeg    decimal.Decimal
	SecondLeg   decimal.Decimal
	OtherLegs   decimal.Decimal
	Overall     decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

func ratio(value, threshold decimal.Decimal) decimal.Decimal {
	if !threshold.IsPositive() {
		return hundred
	}
	r := value.Mul(hundred).Div(threshold)
	if r.GreaterThan(hundred) {
		return hundred
	}
	return r
}

// Progress reports how far the member is from the next rung. A member
// at the top of the ladder reports 100 across the board.
func Progress(db *gorm.DB, snap *plan.Snapshot, memberID uint) (*Report, error) {
	var member models.Member
	if err := db.First(&member, memberID).Error; err != nil {
		return nil, err
	}
	rep := &Report{CurrentRank: member.CurrentRank}

	next := snap.RankAfter(member.RankLevel)
	if next == nil {
		rep.Total, rep.FirstLeg, rep.SecondLeg, rep.OtherLegs, rep.Overall =
			hundred, hundred, hundred, hundred, hundred
		return rep, nil
	}
	rep.NextRank = next.Name

	self, err := hierarchy.SelfEdge(db, memberID)
	if err != nil {
		return nil, err
	}
	bd, err := legs.Compute(db, memberID)
	if err != nil {
		return nil, err
	}

	rep.Total = ratio(self.TotalTurnover, next.TotalThreshold)
	rep.FirstLeg = ratio(bd.FirstTurnover(), next.FirstLegThreshold)
	rep.SecondLeg = ratio(bd.SecondTurnover(), next.SecondLegThreshold)
	rep.OtherLegs = ratio(bd.OtherTurnover, next.OtherLegsThreshold)

	rep.Overall = rep.Total
	for _, r := range []decimal.Decimal{rep.FirstLeg, rep.SecondLeg, rep.OtherLegs} {
		if r.LessThan(rep.Overall) {
			rep.Overall = r
		}
	}
	return rep, nil
}
