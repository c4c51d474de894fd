// Package hierarchy maintains the ancestor closure for the recruitment
// tree: one edge per (descendant, ancestor) pair plus a depth-0
// self-edge per member carrying that member's turnover aggregates.
package hierarchy

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"gorm.io/gorm"
)

// AddMember records a freshly created member under its sponsor: a
// self-edge, plus one edge to every ancestor of the sponsor at the
// ancestor's depth + 1. sponsorID nil registers a root member.
func AddMember(db *gorm.DB, memberID uint, sponsorID *uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if sponsorID != nil {
			if *sponsorID == memberID {
				return fmt.Errorf("%w: member %d cannot sponsor itself", models.ErrInvalidHierarchy, memberID)
			}
			var sponsorEdges []models.HierarchyEdge
			if err := tx.Where("descendant_id = ?", *sponsorID).Order("depth asc").Find(&sponsorEdges).Error; err != nil {
				return err
			}
			if len(sponsorEdges) == 0 {
				return fmt.Errorf("%w: sponsor %d not in hierarchy", models.ErrInvalidHierarchy, *sponsorID)
			}
			// Cycle defense: the sponsor must not already sit below the
			// new member.
			for _, e := range sponsorEdges {
				if e.AncestorID == memberID && e.Depth > 0 {
					return fmt.Errorf("%w: sponsor %d is a descendant of member %d", models.ErrInvalidHierarchy, *sponsorID, memberID)
				}
			}
			for _, e := range sponsorEdges {
				edge := models.HierarchyEdge{
					DescendantID: memberID,
					AncestorID:   e.AncestorID,
					Depth:        e.Depth + 1,
				}
				if err := tx.Create(&edge).Error; err != nil {
					return err
				}
			}
		}
		self := models.HierarchyEdge{DescendantID: memberID, AncestorID: memberID, Depth: 0}
		return tx.Create(&self).Error
	})
}

// ApplyTurnover runs ApplyTurnoverTx in its own transaction.
func ApplyTurnover(db *gorm.DB, memberID uint, amount decimal.Decimal) error {
	return db.Transaction(func(tx *gorm.DB) error {
		return ApplyTurnoverTx(tx, memberID, amount)
	})
}

// ApplyTurnoverTx adds amount to the member's personal turnover and to
// the total turnover of the member and every strict ancestor. Negative
// amounts reverse earlier credits.
func ApplyTurnoverTx(tx *gorm.DB, memberID uint, amount decimal.Decimal) error {
	res := tx.Model(&models.HierarchyEdge{}).
		Where("descendant_id = ? AND depth = 0", memberID).
		Update("personal_turnover", gorm.Expr("personal_turnover + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: member %d has no self-edge", models.ErrInvalidHierarchy, memberID)
	}
	// The subquery's ancestor set includes the member itself via the
	// self-edge, so one statement covers the whole chain. Raw SQL skips
	// gorm's soft-delete scope, so both levels filter deleted edges
	// explicitly.
	return tx.Exec(
		`UPDATE hierarchy_edges
		 SET total_turnover = total_turnover + ?, updated_at = ?
		 WHERE depth = 0 AND deleted_at IS NULL AND descendant_id IN
		   (SELECT ancestor_id FROM hierarchy_edges
		    WHERE descendant_id = ? AND deleted_at IS NULL)`,
		amount, time.Now(), memberID,
	).Error
}

// TurnoverEvent is one purchase-volume delta for batch application.
type TurnoverEvent struct {
	MemberID uint
	Amount   decimal.Decimal
}

// ApplyTurnoverBatch applies many turnover events in one transaction,
// folding them so each affected self-edge is written once regardless of
// how many events touch it.
func ApplyTurnoverBatch(db *gorm.DB, events []TurnoverEvent) error {
	if len(events) == 0 {
		return nil
	}
	personal := map[uint]decimal.Decimal{}
	for _, ev := range events {
		personal[ev.MemberID] = personal[ev.MemberID].Add(ev.Amount)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		totals := map[uint]decimal.Decimal{}
		for memberID, amount := range personal {
			var chain []models.HierarchyEdge
			if err := tx.Where("descendant_id = ?", memberID).Find(&chain).Error; err != nil {
				return err
			}
			if len(chain) == 0 {
				return fmt.Errorf("%w: member %d has no self-edge", models.ErrInvalidHierarchy, memberID)
			}
			for _, e := range chain {
				totals[e.AncestorID] = totals[e.AncestorID].Add(amount)
			}
		}

		// Ascending-id write order keeps concurrent batches over
		// overlapping branches from deadlocking.
		memberIDs := make([]uint, 0, len(personal))
		for id := range personal {
			memberIDs = append(memberIDs, id)
		}
		sort.Slice(memberIDs, func(i, j int) bool { return memberIDs[i] < memberIDs[j] })
		for _, id := range memberIDs {
			err := tx.Model(&models.HierarchyEdge{}).
				Where("descendant_id = ? AND depth = 0", id).
				Update("personal_turnover", gorm.Expr("personal_turnover + ?", personal[id])).Error
			if err != nil {
				return err
			}
		}

		ancestorIDs := make([]uint, 0, len(totals))
		for id := range totals {
			ancestorIDs = append(ancestorIDs, id)
		}
		sort.Slice(ancestorIDs, func(i, j int) bool { return ancestorIDs[i] < ancestorIDs[j] })
		for _, id := range ancestorIDs {
			err := tx.Model(&models.HierarchyEdge{}).
				Where("descendant_id = ? AND depth = 0", id).
				Update("total_turnover", gorm.Expr("total_turnover + ?", totals[id])).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Ancestors returns the member's strict ancestors ordered by depth,
// nearest first, limited to maxDepth when maxDepth > 0.
func Ancestors(db *gorm.DB, memberID uint, maxDepth int) ([]models.HierarchyEdge, error) {
	q := db.Where("descendant_id = ? AND depth > 0", memberID)
	if maxDepth > 0 {
		q = q.Where("depth <= ?", maxDepth)
	}
	var edges []models.HierarchyEdge
	if err := q.Order("depth asc").Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

// DirectDescendants returns the member's first line, ascending by id.
func DirectDescendants(db *gorm.DB, memberID uint) ([]models.Member, error) {
	var members []models.Member
	err := db.Where("sponsor_id = ?", memberID).Order("id asc").Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

// SubtreeSize counts every member strictly below the given one.
func SubtreeSize(db *gorm.DB, memberID uint) (int64, error) {
	var n int64
	err := db.Model(&models.HierarchyEdge{}).
		Where("ancestor_id = ? AND depth > 0", memberID).
		Count(&n).Error
	return n, err
}

// SelfEdge loads the member's depth-0 edge.
func SelfEdge(db *gorm.DB, memberID uint) (*models.HierarchyEdge, error) {
	var edge models.HierarchyEdge
	err := db.Where("descendant_id = ? AND depth = 0", memberID).First(&edge).Error
	if err != nil {
		return nil, err
	}
	return &edge, nil
}
