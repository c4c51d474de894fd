// Package plan materializes the compensation configuration into an
// immutable snapshot. Engines receive a Snapshot per operation so a
// distribution in flight never sees a half-updated percentage table.
package plan

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/stanmart1/rest-empire-sub000/configs"
	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"gorm.io/gorm"
)

// MaxLevels bounds the unilevel walk; deeper ancestors earn nothing
// except through the infinity bonus.
const MaxLevels = 15

type PayoutPolicy struct {
	FeePercent          decimal.Decimal
	Minimums            map[string]decimal.Decimal
	DailyLimitNGN       decimal.Decimal
	WeeklyLimitNGN      decimal.Decimal
	MonthlyLimitNGN     decimal.Decimal
	RequireVerification bool
}

type Snapshot struct {
	// LevelPercents[0] is level 1. Never longer than MaxLevels.
	LevelPercents        []decimal.Decimal
	InfinityPercent      decimal.Decimal
	InfinityMinRankLevel int
	// Ranks sorted ascending by Level.
	Ranks  []models.Rank
	Payout PayoutPolicy
}

// Load reads the current configuration and rank ladder into a Snapshot.
func Load(db *gorm.DB) (*Snapshot, error) {
	cfg := configs.AppConfig

	if len(cfg.Commission.LevelPercents) > MaxLevels {
		return nil, fmt.Errorf("commission plan has %d levels, max %d", len(cfg.Commission.LevelPercents), MaxLevels)
	}

	s := &Snapshot{
		InfinityPercent:      decimal.NewFromFloat(cfg.Commission.InfinityPercent),
		InfinityMinRankLevel: cfg.Commission.InfinityMinRankLevel,
		Payout: PayoutPolicy{
			FeePercent:          decimal.NewFromFloat(cfg.Payout.FeePercent),
			Minimums:            map[string]decimal.Decimal{},
			DailyLimitNGN:       decimal.NewFromFloat(cfg.Payout.DailyLimitNGN),
			WeeklyLimitNGN:      decimal.NewFromFloat(cfg.Payout.WeeklyLimitNGN),
			MonthlyLimitNGN:     decimal.NewFromFloat(cfg.Payout.MonthlyLimitNGN),
			RequireVerification: cfg.Payout.RequireVerification,
		},
	}
	for _, p := range cfg.Commission.LevelPercents {
		s.LevelPercents = append(s.LevelPercents, decimal.NewFromFloat(p))
	}
	for cur, min := range cfg.Payout.Minimums {
		s.Payout.Minimums[cur] = decimal.NewFromFloat(min)
	}

	if err := db.Order("level asc").Find(&s.Ranks).Error; err != nil {
		return nil, fmt.Errorf("load rank ladder: %w", err)
	}
	return s, nil
}

// LevelPercent returns the configured percentage for a 1-based level,
// zero when the level is unconfigured.
func (s *Snapshot) LevelPercent(level int) decimal.Decimal {
	if level < 1 || level > len(s.LevelPercents) {
		return decimal.Zero
	}
	return s.LevelPercents[level-1]
}

// RankAfter returns the next rung above the given ordinal, nil at the top.
func (s *Snapshot) RankAfter(level int) *models.Rank {
	i := sort.Search(len(s.Ranks), func(i int) bool { return s.Ranks[i].Level > level })
	if i == len(s.Ranks) {
		return nil
	}
	return &s.Ranks[i]
}

// Minimum returns the payout floor for a currency, zero if unset.
func (p PayoutPolicy) Minimum(currency string) decimal.Decimal {
	return p.Minimums[currency]
}
