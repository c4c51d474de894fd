// Package testdb gives engine tests a real gorm database backed by
// in-memory sqlite.
package testdb

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stanmart1/rest-empire-sub000/internal/hierarchy"
	"github.com/stanmart1/rest-empire-sub000/internal/logger"
	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"gorm.io/gorm"
)

// New opens a fresh in-memory database with the full schema. The single
// connection keeps every session on the same memory store.
func New(t *testing.T) *gorm.DB {
	t.Helper()
	logger.InitSilent()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.Member{},
		&models.HierarchyEdge{},
		&models.Purchase{},
		&models.Rank{},
		&models.Bonus{},
		&models.Payout{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// AddMember creates a member and registers it in the hierarchy.
func AddMember(t *testing.T, db *gorm.DB, name string, sponsorID *uint, active bool) models.Member {
	t.Helper()
	member := models.Member{
		Name:          name,
		Email:         name + "@test.local",
		ReferralCode:  name,
		SponsorID:     sponsorID,
		BalanceNGN:    decimal.Zero,
		BalanceUSD:    decimal.Zero,
		TotalEarnings: decimal.Zero,
		IsActive:      active,
		IsVerified:    true,
	}
	if err := db.Create(&member).Error; err != nil {
		t.Fatalf("create member %s: %v", name, err)
	}
	if err := hierarchy.AddMember(db, member.ID, sponsorID); err != nil {
		t.Fatalf("add member %s to hierarchy: %v", name, err)
	}
	return member
}

// Reload fetches the member's current row.
func Reload(t *testing.T, db *gorm.DB, id uint) models.Member {
	t.Helper()
	var member models.Member
	if err := db.First(&member, id).Error; err != nil {
		t.Fatalf("reload member %d: %v", id, err)
	}
	return member
}

// Dec parses a decimal literal, failing the test on bad input.
func Dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}
