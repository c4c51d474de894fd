package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stanmart1/rest-empire-sub000/internal/commission"
	"github.com/stanmart1/rest-empire-sub000/internal/httputil"
	"github.com/stanmart1/rest-empire-sub000/internal/legs"
	"github.com/stanmart1/rest-empire-sub000/internal/logger"
	appmw "github.com/stanmart1/rest-empire-sub000/internal/middleware"
	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"github.com/stanmart1/rest-empire-sub000/internal/notify"
	"github.com/stanmart1/rest-empire-sub000/internal/plan"
	"github.com/stanmart1/rest-empire-sub000/internal/rank"
	"github.com/stanmart1/rest-empire-sub000/internal/store"
	"go.uber.org/zap"
)

type PurchaseRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Reference string          `json:"reference"`
}

// PurchaseHandler accepts a settled purchase for the authenticated
// member and runs commission distribution.
func PurchaseHandler(w http.ResponseWriter, r *http.Request) {
	memberID, ok := appmw.MemberID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Amount.IsPositive() {
		httputil.WriteError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if req.Currency != models.CurrencyNGN && req.Currency != models.CurrencyUSD {
		httputil.WriteError(w, http.StatusBadRequest, "unsupported currency")
		return
	}
	if req.Reference == "" {
		req.Reference = uuid.NewString()
	}

	snap, err := plan.Load(store.DB)
	if err != nil {
		logger.Log.Error("failed to load compensation plan", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "plan unavailable")
		return
	}

	purchase, bonuses, err := commission.Distribute(store.DB, snap, nil, commission.PurchaseInput{
		BuyerID:   memberID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Reference: req.Reference,
	}, notify.NewLog())
	if err != nil {
		logger.Log.Error("commission distribution failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "distribution failed")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"purchase_id": purchase.ID,
		"reference":   purchase.Reference,
		"status":      purchase.Status,
		"bonuses":     len(bonuses),
	})
}

// RefundHandler reverses a purchase: bonuses cancelled, balances and
// turnover unwound.
func RefundHandler(w http.ResponseWriter, r *http.Request) {
	purchaseID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid purchase id")
		return
	}

	if err := commission.Reverse(store.DB, uint(purchaseID)); err != nil {
		if errors.Is(err, models.ErrAlreadyProcessed) {
			httputil.WriteError(w, http.StatusConflict, "purchase already refunded")
			return
		}
		logger.Log.Error("purchase reversal failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "reversal failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "refunded"})
}

func LegsHandler(w http.ResponseWriter, r *http.Request) {
	memberID, ok := appmw.MemberID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	bd, err := legs.Compute(store.DB, memberID)
	if err != nil {
		logger.Log.Error("leg breakdown failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "breakdown failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bd)
}

func RankProgressHandler(w http.ResponseWriter, r *http.Request) {
	memberID, ok := appmw.MemberID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	snap, err := plan.Load(store.DB)
	if err != nil {
		logger.Log.Error("failed to load compensation plan", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "plan unavailable")
		return
	}
	report, err := rank.Progress(store.DB, snap, memberID)
	if err != nil {
		logger.Log.Error("rank progress failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "progress failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
