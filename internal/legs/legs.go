// Package legs partitions a member's downline into legs, one per
// direct recruit, ranked by subtree turnover.
package legs

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/stanmart1/rest-empire-sub000/internal/hierarchy"
	"gorm.io/gorm"
)

type Leg struct {
	MemberID    uint
	Name        string
	Turnover    decimal.Decimal
	MemberCount int64
	Percentage  decimal.Decimal
}

type Breakdown struct {
	// AllLegs sorted descending by turnover, ties by ascending member id.
	AllLegs   []Leg
	FirstLeg  *Leg
	SecondLeg *Leg
	// Everything past the second leg, combined.
	OtherTurnover    decimal.Decimal
	OtherMemberCount int64
	TotalTurnover    decimal.Decimal
}

func (b *Breakdown) FirstTurnover() decimal.Decimal {
	if b.FirstLeg == nil {
		return decimal.Zero
	}
	return b.FirstLeg.Turnover
}

func (b *Breakdown) SecondTurnover() decimal.Decimal {
	if b.SecondLeg == nil {
		return decimal.Zero
	}
	return b.SecondLeg.Turnover
}

var hundred = decimal.NewFromInt(100)

// Compute builds the leg breakdown for a member. A member with no
// recruits gets an empty breakdown, not an error.
func Compute(db *gorm.DB, memberID uint) (*Breakdown, error) {
	recruits, err := hierarchy.DirectDescendants(db, memberID)
	if err != nil {
		return nil, err
	}

	b := &Breakdown{
		OtherTurnover: decimal.Zero,
		TotalTurnover: decimal.Zero,
	}
	for _, r := range recruits {
		self, err := hierarchy.SelfEdge(db, r.ID)
		if err != nil {
			return nil, err
		}
		size, err := hierarchy.SubtreeSize(db, r.ID)
		if err != nil {
			return nil, err
		}
		b.AllLegs = append(b.AllLegs, Leg{
			MemberID:    r.ID,
			Name:        r.Name,
			Turnover:    self.TotalTurnover,
			MemberCount: size + 1,
		})
	}

	sort.Slice(b.AllLegs, func(i, j int) bool {
		cmp := b.AllLegs[i].Turnover.Cmp(b.AllLegs[j].Turnover)
		if cmp != 0 {
			return cmp > 0
		}
		return b.AllLegs[i].MemberID < b.AllLegs[j].MemberID
	})

	for _, leg := range b.AllLegs {
		b.TotalTurnover = b.TotalTurnover.Add(leg.Turnover)
	}
	for i := range b.AllLegs {
		if b.TotalTurnover.IsPositive() {
			b.AllLegs[i].Percentage = b.AllLegs[i].Turnover.Mul(hundred).Div(b.TotalTurnover)
		}
	}

	for i := range b.AllLegs {
		switch i {
		case 0:
			b.FirstLeg = &b.AllLegs[i]
		case 1:
			b.SecondLeg = &b.AllLegs[i]
		default:
			b.OtherTurnover = b.OtherTurnover.Add(b.AllLegs[i].Turnover)
			b.OtherMemberCount += b.AllLegs[i].MemberCount
		}
	}
	return b, nil
}
