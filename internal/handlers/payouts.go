package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stanmart1/rest-empire-sub000/internal/httputil"
	"github.com/stanmart1/rest-empire-sub000/internal/logger"
	appmw "github.com/stanmart1/rest-empire-sub000/internal/middleware"
	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"github.com/stanmart1/rest-empire-sub000/internal/notify"
	"github.com/stanmart1/rest-empire-sub000/internal/payout"
	"github.com/stanmart1/rest-empire-sub000/internal/plan"
	"github.com/stanmart1/rest-empire-sub000/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PayoutRequestBody struct {
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Method         string          `json:"method"`
	IdempotencyKey string          `json:"idempotency_key"`
}

func RequestPayoutHandler(w http.ResponseWriter, r *http.Request) {
	memberID, ok := appmw.MemberID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req PayoutRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}
	if req.Method == "" {
		req.Method = "bank_transfer"
	}

	snap, err := plan.Load(store.DB)
	if err != nil {
		logger.Log.Error("failed to load compensation plan", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "plan unavailable")
		return
	}

	p, err := payout.RequestPayout(store.DB, snap.Payout, payout.Request{
		MemberID:       memberID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Method:         req.Method,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writePayoutError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func writePayoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrBelowMinimumPayout),
		errors.Is(err, models.ErrInsufficientBalance),
		errors.Is(err, models.ErrLimitExceeded),
		errors.Is(err, models.ErrVerificationRequired):
		httputil.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrAlreadyProcessed):
		httputil.WriteError(w, http.StatusConflict, err.Error())
	default:
		logger.Log.Error("payout operation failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "payout operation failed")
	}
}

func payoutTransitionHandler(fn func(*gorm.DB, uint, uint, notify.Notifier) (*models.Payout, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, ok := appmw.MemberID(r.Context())
		if !ok {
			httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		payoutID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid payout id")
			return
		}

		p, err := fn(store.DB, uint(payoutID), adminID, notify.NewLog())
		if err != nil {
			writePayoutError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, p)
	}
}

var (
	ApprovePayoutHandler  = payoutTransitionHandler(payout.Approve)
	RejectPayoutHandler   = payoutTransitionHandler(payout.Reject)
	CompletePayoutHandler = payoutTransitionHandler(payout.Complete)
)

type AdjustmentRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Note     string          `json:"note"`
}

// ManualAdjustHandler books an admin balance correction as a
// manual_adjustment bonus so the ledger stays complete.
func ManualAdjustHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := appmw.MemberID(r.Context()); !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	memberID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	var req AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount.IsZero() {
		httputil.WriteError(w, http.StatusBadRequest, "amount must be non-zero")
		return
	}

	bonus := models.NewManualAdjustment(uint(memberID), req.Amount, req.Currency, req.Note)
	err = store.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&bonus).Error; err != nil {
			return err
		}
		return store.AdjustBalance(tx, uint(memberID), req.Currency, req.Amount, false)
	})
	if err != nil {
		logger.Log.Error("manual adjustment failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "adjustment failed")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, bonus)
}
