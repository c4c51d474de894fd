// Package payout moves money out of member balances through an
// approve/reject/complete state machine. The requested amount leaves
// the balance the moment the request is accepted; only rejection puts
// it back.
package payout

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stanmart1/rest-empire-sub000/internal/logger"
	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"github.com/stanmart1/rest-empire-sub000/internal/monitoring"
	"github.com/stanmart1/rest-empire-sub000/internal/notify"
	"github.com/stanmart1/rest-empire-sub000/internal/plan"
	"github.com/stanmart1/rest-empire-sub000/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Request struct {
	MemberID       uint
	Amount         decimal.Decimal
	Currency       string
	Method         string
	IdempotencyKey string
}

var hundred = decimal.NewFromInt(100)

// RequestPayout validates and books a withdrawal. Replaying an
// idempotency key returns the original payout untouched, whatever the
// replay's amount says. Validation failures leave no trace.
func RequestPayout(db *gorm.DB, policy plan.PayoutPolicy, req Request) (*models.Payout, error) {
	fee := req.Amount.Mul(policy.FeePercent).Div(hundred)
	payout := models.Payout{
		MemberID:       req.MemberID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Method:         req.Method,
		Fee:            fee,
		NetAmount:      req.Amount.Sub(fee),
		IdempotencyKey: req.IdempotencyKey,
		Status:         models.PayoutPending,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		// Creating first claims the idempotency key: a concurrent
		// replay loses here with a duplicate-key error and resolves
		// to the original row below. A validation failure rolls the
		// claim back.
		if err := tx.Create(&payout).Error; err != nil {
			return err
		}

		var member models.Member
		if err := store.Locked(tx).First(&member, req.MemberID).Error; err != nil {
			return err
		}
		if policy.RequireVerification && !member.IsVerified {
			return models.ErrVerificationRequired
		}
		if req.Amount.LessThan(policy.Minimum(req.Currency)) || !req.Amount.IsPositive() {
			return models.ErrBelowMinimumPayout
		}
		if member.Balance(req.Currency).LessThan(req.Amount) {
			return models.ErrInsufficientBalance
		}
		if req.Currency == models.CurrencyNGN {
			if err := checkWindows(tx, policy, req, payout.ID); err != nil {
				return err
			}
		}

		return store.AdjustBalance(tx, req.MemberID, req.Currency, req.Amount.Neg(), false)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing models.Payout
			if ferr := db.Where("idempotency_key = ?", req.IdempotencyKey).First(&existing).Error; ferr == nil {
				return &existing, nil
			}
		}
		return nil, err
	}

	monitoring.PayoutTransitions.WithLabelValues(string(models.PayoutPending)).Inc()
	logger.Log.Info("payout requested",
		zap.Uint("member_id", req.MemberID),
		zap.String("amount", req.Amount.String()),
		zap.String("currency", req.Currency))
	return &payout, nil
}

// checkWindows enforces the trailing 24h/7d/30d caps. Rejected payouts
// do not count against the caps; a zero limit means uncapped. The row
// being booked is already inserted, so it is excluded from the sums.
func checkWindows(tx *gorm.DB, policy plan.PayoutPolicy, req Request, bookingID uint) error {
	windows := []struct {
		since time.Duration
		limit decimal.Decimal
	}{
		{24 * time.Hour, policy.DailyLimitNGN},
		{7 * 24 * time.Hour, policy.WeeklyLimitNGN},
		{30 * 24 * time.Hour, policy.MonthlyLimitNGN},
	}
	for _, w := range windows {
		if !w.limit.IsPositive() {
			continue
		}
		var spent decimal.Decimal
		err := tx.Model(&models.Payout{}).
			Select("COALESCE(SUM(amount), 0)").
			Where("member_id = ? AND currency = ? AND status <> ? AND id <> ? AND created_at > ?",
				req.MemberID, req.Currency, models.PayoutRejected, bookingID, time.Now().Add(-w.since)).
			Scan(&spent).Error
		if err != nil {
			return err
		}
		if spent.Add(req.Amount).GreaterThan(w.limit) {
			return fmt.Errorf("%w: %s over %s window", models.ErrLimitExceeded, w.limit, w.since)
		}
	}
	return nil
}

// Approve moves a pending payout to approved.
func Approve(db *gorm.DB, payoutID, adminID uint, notifier notify.Notifier) (*models.Payout, error) {
	return transition(db, payoutID, adminID, models.PayoutPending, models.PayoutApproved, notifier, nil)
}

// Reject refunds the deducted amount and closes the payout. Terminal.
func Reject(db *gorm.DB, payoutID, adminID uint, notifier notify.Notifier) (*models.Payout, error) {
	return transition(db, payoutID, adminID, models.PayoutPending, models.PayoutRejected, notifier,
		func(tx *gorm.DB, p *models.Payout) error {
			return store.AdjustBalance(tx, p.MemberID, p.Currency, p.Amount, false)
		})
}

// Complete finalizes an approved payout. The balance moved at request
// time, so completion writes no money.
func Complete(db *gorm.DB, payoutID, adminID uint, notifier notify.Notifier) (*models.Payout, error) {
	return transition(db, payoutID, adminID, models.PayoutApproved, models.PayoutCompleted, notifier, nil)
}

func transition(db *gorm.DB, payoutID, adminID uint, from, to models.PayoutStatus, notifier notify.Notifier, extra func(*gorm.DB, *models.Payout) error) (*models.Payout, error) {
	var payout models.Payout
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := store.Locked(tx).First(&payout, payoutID).Error; err != nil {
			return err
		}
		if payout.Status != from {
			return models.ErrAlreadyProcessed
		}
		if extra != nil {
			if err := extra(tx, &payout); err != nil {
				return err
			}
		}
		now := time.Now()
		payout.Status = to
		payout.ProcessedBy = &adminID
		payout.ProcessedAt = &now
		return tx.Model(&models.Payout{}).Where("id = ?", payoutID).Updates(map[string]any{
			"status":       to,
			"processed_by": adminID,
			"processed_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	monitoring.PayoutTransitions.WithLabelValues(string(to)).Inc()
	if notifier != nil {
		notifier.PayoutStatusChanged(payout)
	}
	logger.Log.Info("payout transitioned",
		zap.Uint("payout_id", payoutID),
		zap.String("status", string(to)))
	return &payout, nil
}
