package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	CurrencyNGN = "NGN"
	CurrencyUSD = "USD"
)

// Member is a participant in the referral network. SponsorID points at the
// one direct recruiter; it is nil only for root members.
type Member struct {
	gorm.Model
	Name           string          `gorm:"size:100;not null"`
	Email          string          `gorm:"uniqueIndex;size:255;not null"`
	Password       string          `gorm:"size:255"`
	ReferralCode   string          `gorm:"uniqueIndex;size:20;not null"`
	SponsorID      *uint           `gorm:"index"`
	BalanceNGN     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
	BalanceUSD     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
	TotalEarnings  decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
	CurrentRank    string          `gorm:"size:50;not null;default:''"`
	RankLevel      int             `gorm:"not null;default:0"`
	RankAchievedAt *time.Time
	IsActive       bool `gorm:"not null;default:true"`
	IsVerified     bool `gorm:"not null;default:false"`
}

// Balance returns the member's balance in the given currency.
func (m *Member) Balance(currency string) decimal.Decimal {
	if currency == CurrencyUSD {
		return m.BalanceUSD
	}
	return m.BalanceNGN
}

// BalanceColumn maps a currency to the member column holding it.
func BalanceColumn(currency string) string {
	if currency == CurrencyUSD {
		return "balance_usd"
	}
	return "balance_ngn"
}

// HierarchyEdge is one row of the ancestor closure: member DescendantID
// has AncestorID above it at Depth recruitment steps. Depth 0 is the
// self-edge; its PersonalTurnover holds the member's own purchase volume
// and its TotalTurnover the aggregate over the whole subtree rooted at
// the member, the member included.
type HierarchyEdge struct {
	gorm.Model
	DescendantID     uint            `gorm:"not null;uniqueIndex:idx_edge_pair;index"`
	AncestorID       uint            `gorm:"not null;uniqueIndex:idx_edge_pair;index"`
	Depth            int             `gorm:"not null;index"`
	PersonalTurnover decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
	TotalTurnover    decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`
}

// Purchase is a confirmed, settled order that drives turnover and
// commission distribution. Settlement itself happens upstream.
type Purchase struct {
	gorm.Model
	MemberID  uint            `gorm:"index;not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	Currency  string          `gorm:"size:3;not null"`
	Reference string          `gorm:"uniqueIndex;size:64;not null"`
	Status    PurchaseStatus  `gorm:"size:20;not null;default:'completed'"`
}

type PurchaseStatus string

const (
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseRefunded  PurchaseStatus = "refunded"
)

// Rank is one rung of the qualification ladder. Rows are configuration:
// the engines read them, admins manage them.
type Rank struct {
	gorm.Model
	Name               string          `gorm:"uniqueIndex;size:50;not null"`
	Level              int             `gorm:"uniqueIndex;not null"`
	TotalThreshold     decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	FirstLegThreshold  decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	SecondLegThreshold decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	OtherLegsThreshold decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	BonusAmount        decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	BonusCurrency      string          `gorm:"size:3;not null;default:'NGN'"`
}

// Payout is a withdrawal request. The requested amount is deducted from
// the balance at creation; rejection refunds it, completion is terminal.
type Payout struct {
	gorm.Model
	MemberID       uint            `gorm:"index;not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	Currency       string          `gorm:"size:3;not null"`
	Method         string          `gorm:"size:30;not null"`
	Fee            decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	NetAmount      decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	IdempotencyKey string          `gorm:"uniqueIndex;size:64;not null"`
	Status         PayoutStatus    `gorm:"size:20;not null;index"`
	ProcessedBy    *uint
	ProcessedAt    *time.Time
}

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutApproved  PayoutStatus = "approved"
	PayoutCompleted PayoutStatus = "completed"
	PayoutRejected  PayoutStatus = "rejected"
)
