package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stanmart1/rest-empire-sub000/configs"
	"github.com/stanmart1/rest-empire-sub000/internal/hierarchy"
	"github.com/stanmart1/rest-empire-sub000/internal/httputil"
	"github.com/stanmart1/rest-empire-sub000/internal/logger"
	appmw "github.com/stanmart1/rest-empire-sub000/internal/middleware"
	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"github.com/stanmart1/rest-empire-sub000/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	SponsorCode string `json:"sponsor_code"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// RegisterHandler creates a member under the sponsor named by referral
// code and records it in the hierarchy in the same transaction.
func RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	var sponsorID *uint
	if req.SponsorCode != "" {
		var sponsor models.Member
		if err := store.DB.Where("referral_code = ?", req.SponsorCode).First(&sponsor).Error; err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "unknown sponsor code")
			return
		}
		sponsorID = &sponsor.ID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Error("failed to hash password", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	member := models.Member{
		Name:          req.Name,
		Email:         req.Email,
		Password:      string(hash),
		ReferralCode:  newReferralCode(),
		SponsorID:     sponsorID,
		BalanceNGN:    decimal.Zero,
		BalanceUSD:    decimal.Zero,
		TotalEarnings: decimal.Zero,
		IsActive:      true,
	}
	err = store.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		return hierarchy.AddMember(tx, member.ID, sponsorID)
	})
	if err != nil {
		if errors.Is(err, models.ErrInvalidHierarchy) {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Log.Error("registration failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":            member.ID,
		"referral_code": member.ReferralCode,
	})
}

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	var member models.Member
	if err := store.DB.Where("email = ?", req.Email).First(&member).Error; err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.Password), []byte(req.Password)); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	claims := jwt.MapClaims{
		"sub": member.ID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(configs.AppConfig.JWT.SECRET))
	if err != nil {
		logger.Log.Error("failed to sign jwt", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{Token: signed})
}

func MeHandler(w http.ResponseWriter, r *http.Request) {
	memberID, ok := appmw.MemberID(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var member models.Member
	if err := store.DB.First(&member, memberID).Error; err != nil {
		httputil.WriteError(w, http.StatusNotFound, "member not found")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"id":             member.ID,
		"name":           member.Name,
		"email":          member.Email,
		"referral_code":  member.ReferralCode,
		"balance_ngn":    member.BalanceNGN,
		"balance_usd":    member.BalanceUSD,
		"total_earnings": member.TotalEarnings,
		"current_rank":   member.CurrentRank,
		"is_active":      member.IsActive,
		"is_verified":    member.IsVerified,
	})
}
