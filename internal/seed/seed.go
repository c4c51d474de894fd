package seed

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/shopspring/decimal"
	"github.com/stanmart1/rest-empire-sub000/internal/hierarchy"
	"github.com/stanmart1/rest-empire-sub000/internal/logger"
	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"github.com/stanmart1/rest-empire-sub000/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const seedPassword = "password123"

// The default ladder. Thresholds are NGN turnover; each rung's bonus is
// paid once on achievement.
var ranks = []models.Rank{
	{Name: "Bronze", Level: 1, TotalThreshold: dec("5000"), FirstLegThreshold: dec("2000"), SecondLegThreshold: dec("1000"), OtherLegsThreshold: dec("0"), BonusAmount: dec("500"), BonusCurrency: models.CurrencyNGN},
	{Name: "Silver", Level: 2, TotalThreshold: dec("25000"), FirstLegThreshold: dec("10000"), SecondLegThreshold: dec("5000"), OtherLegsThreshold: dec("2500"), BonusAmount: dec("2500"), BonusCurrency: models.CurrencyNGN},
	{Name: "Gold", Level: 3, TotalThreshold: dec("100000"), FirstLegThreshold: dec("40000"), SecondLegThreshold: dec("20000"), OtherLegsThreshold: dec("10000"), BonusAmount: dec("10000"), BonusCurrency: models.CurrencyNGN},
	{Name: "Platinum", Level: 4, TotalThreshold: dec("500000"), FirstLegThreshold: dec("200000"), SecondLegThreshold: dec("100000"), OtherLegsThreshold: dec("50000"), BonusAmount: dec("50000"), BonusCurrency: models.CurrencyNGN},
	{Name: "Diamond", Level: 5, TotalThreshold: dec("2000000"), FirstLegThreshold: dec("800000"), SecondLegThreshold: dec("400000"), OtherLegsThreshold: dec("200000"), BonusAmount: dec("250000"), BonusCurrency: models.CurrencyNGN},
}

var demoMembers = []struct {
	Name    string
	Email   string
	Code    string
	Sponsor string // referral code of the sponsor, empty for root
}{
	{"Root Member", "root@demo.local", "ROOT000001", ""},
	{"Demo Member A", "a@demo.local", "DEMOA00001", "ROOT000001"},
	{"Demo Member B", "b@demo.local", "DEMOB00001", "ROOT000001"},
	{"Demo Member C", "c@demo.local", "DEMOC00001", "DEMOA00001"},
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func Run() {
	db := store.DB

	var rankCount int64
	if err := db.Model(&models.Rank{}).Count(&rankCount).Error; err != nil {
		logger.Log.Fatal("seed check failed", zap.Error(err))
	}
	if rankCount == 0 {
		if err := db.Create(&ranks).Error; err != nil {
			logger.Log.Fatal("rank seed failed", zap.Error(err))
		}
		logger.Log.Info("seeded rank ladder", zap.Int("ranks", len(ranks)))
	}

	var memberCount int64
	if err := db.Model(&models.Member{}).Where("email = ?", demoMembers[0].Email).Count(&memberCount).Error; err != nil {
		logger.Log.Fatal("seed check failed", zap.Error(err))
	}
	if memberCount > 0 {
		logger.Log.Info("seed already applied, skipping")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Fatal("failed to hash seed password", zap.Error(err))
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		byCode := map[string]uint{}
		for _, dm := range demoMembers {
			var sponsorID *uint
			if dm.Sponsor != "" {
				id := byCode[dm.Sponsor]
				sponsorID = &id
			}
			member := models.Member{
				Name:          dm.Name,
				Email:         dm.Email,
				Password:      string(hash),
				ReferralCode:  dm.Code,
				SponsorID:     sponsorID,
				BalanceNGN:    decimal.Zero,
				BalanceUSD:    decimal.Zero,
				TotalEarnings: decimal.Zero,
				IsActive:      true,
				IsVerified:    true,
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
			if err := hierarchy.AddMember(tx, member.ID, sponsorID); err != nil {
				return err
			}
			byCode[dm.Code] = member.ID
		}
		return nil
	})
	if err != nil {
		logger.Log.Fatal("seed failed", zap.Error(err))
	}
	logger.Log.Info("seeded demo recruitment tree", zap.Int("members", len(demoMembers)), zap.String("password", seedPassword))
}
