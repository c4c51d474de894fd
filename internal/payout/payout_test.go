package payout_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stanmart1/rest-empire-sub000/internal/models"
	"github.com/stanmart1/rest-empire-sub000/internal/payout"
	"github.com/stanmart1/rest-empire-sub000/internal/plan"
	"github.com/stanmart1/rest-empire-sub000/internal/testdb"
	"gorm.io/gorm"
)

func policy(t *testing.T) plan.PayoutPolicy {
	return plan.PayoutPolicy{
		FeePercent: testdb.Dec(t, "2"),
		Minimums: map[string]decimal.Decimal{
			models.CurrencyNGN: testdb.Dec(t, "10"),
		},
	}
}

func memberWithBalance(t *testing.T, db *gorm.DB, ngn string) models.Member {
	m := testdb.AddMember(t, db, "payee", nil, true)
	err := db.Model(&models.Member{}).Where("id = ?", m.ID).
		Update("balance_ngn", testdb.Dec(t, ngn)).Error
	if err != nil {
		t.Fatalf("fund member: %v", err)
	}
	return testdb.Reload(t, db, m.ID)
}

func request(t *testing.T, db *gorm.DB, pol plan.PayoutPolicy, member uint, amount, key string) (*models.Payout, error) {
	t.Helper()
	return payout.RequestPayout(db, pol, payout.Request{
		MemberID:       member,
		Amount:         testdb.Dec(t, amount),
		Currency:       models.CurrencyNGN,
		Method:         "bank_transfer",
		IdempotencyKey: key,
	})
}

func TestRequestComputesFeeAndDeductsGross(t *testing.T) {
	db := testdb.New(t)
	m := memberWithBalance(t, db, "200")

	p, err := request(t, db, policy(t), m.ID, "50", "key-1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if want := testdb.Dec(t, "1"); !p.Fee.Equal(want) {
		t.Errorf("fee %s, want %s", p.Fee, want)
	}
	if want := testdb.Dec(t, "49"); !p.NetAmount.Equal(want) {
		t.Errorf("net %s, want %s", p.NetAmount, want)
	}
	if p.Status != models.PayoutPending {
		t.Errorf("status %s, want pending", p.Status)
	}

	// The gross amount leaves the balance at request time, not the net.
	after := testdb.Reload(t, db, m.ID)
	if want := testdb.Dec(t, "150"); !after.BalanceNGN.Equal(want) {
		t.Errorf("balance %s, want %s", after.BalanceNGN, want)
	}
}

func TestRequestIdempotency(t *testing.T) {
	db := testdb.New(t)
	m := memberWithBalance(t, db, "200")
	pol := policy(t)

	first, err := request(t, db, pol, m.ID, "50", "key-1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	second, err := request(t, db, pol, m.ID, "80", "key-1")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("replay created payout %d, want original %d", second.ID, first.ID)
	}
	if !second.Amount.Equal(first.Amount) {
		t.Errorf("replay amount %s, want original %s", second.Amount, first.Amount)
	}

	after := testdb.Reload(t, db, m.ID)
	if want := testdb.Dec(t, "150"); !after.BalanceNGN.Equal(want) {
		t.Errorf("balance %s after replay, want one deduction = %s", after.BalanceNGN, want)
	}
}

func TestRequestValidation(t *testing.T) {
	db := testdb.New(t)
	m := memberWithBalance(t, db, "100")
	pol := policy(t)

	cases := []struct {
		name   string
		amount string
		setup  func()
		want   error
	}{
		{"below minimum", "5", nil, models.ErrBelowMinimumPayout},
		{"insufficient balance", "150", nil, models.ErrInsufficientBalance},
		{"verification required", "50", func() {
			pol.RequireVerification = true
			db.Model(&models.Member{}).Where("id = ?", m.ID).Update("is_verified", false)
		}, models.ErrVerificationRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setup != nil {
				tc.setup()
			}
			_, err := request(t, db, pol, m.ID, tc.amount, "key-"+tc.name)
			if !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
			after := testdb.Reload(t, db, m.ID)
			if want := testdb.Dec(t, "100"); !after.BalanceNGN.Equal(want) {
				t.Errorf("rejected request touched the balance: %s", after.BalanceNGN)
			}
		})
	}
}

func TestRequestWindowedLimits(t *testing.T) {
	db := testdb.New(t)
	m := memberWithBalance(t, db, "1000")
	pol := policy(t)
	pol.DailyLimitNGN = testdb.Dec(t, "100")

	if _, err := request(t, db, pol, m.ID, "80", "key-1"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	_, err := request(t, db, pol, m.ID, "30", "key-2")
	if !errors.Is(err, models.ErrLimitExceeded) {
		t.Errorf("got %v, want ErrLimitExceeded", err)
	}

	// Rejected payouts free up the window.
	var pending models.Payout
	if err := db.Where("idempotency_key = ?", "key-1").First(&pending).Error; err != nil {
		t.Fatalf("load payout: %v", err)
	}
	if _, err := payout.Reject(db, pending.ID, m.ID, nil); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := request(t, db, pol, m.ID, "30", "key-3"); err != nil {
		t.Errorf("request after rejection: %v", err)
	}
}

func backdate(t *testing.T, db *gorm.DB, payoutID uint, age time.Duration) {
	t.Helper()
	err := db.Model(&models.Payout{}).Where("id = ?", payoutID).
		Update("created_at", time.Now().Add(-age)).Error
	if err != nil {
		t.Fatalf("backdate payout: %v", err)
	}
}

func TestRequestWeeklyWindowLimit(t *testing.T) {
	db := testdb.New(t)
	m := memberWithBalance(t, db, "1000")
	pol := policy(t)
	pol.WeeklyLimitNGN = testdb.Dec(t, "100")

	first, err := request(t, db, pol, m.ID, "80", "key-1")
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	// Three days old: clear of any daily cap, still inside the week.
	backdate(t, db, first.ID, 3*24*time.Hour)

	if _, err := request(t, db, pol, m.ID, "30", "key-2"); !errors.Is(err, models.ErrLimitExceeded) {
		t.Errorf("got %v, want ErrLimitExceeded", err)
	}

	// Eight days old falls out of the weekly window.
	backdate(t, db, first.ID, 8*24*time.Hour)
	if _, err := request(t, db, pol, m.ID, "30", "key-3"); err != nil {
		t.Errorf("request past weekly window: %v", err)
	}
}

func TestRequestMonthlyWindowLimit(t *testing.T) {
	db := testdb.New(t)
	m := memberWithBalance(t, db, "1000")
	pol := policy(t)
	pol.MonthlyLimitNGN = testdb.Dec(t, "100")

	first, err := request(t, db, pol, m.ID, "80", "key-1")
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	// Ten days old: clear of the daily and weekly windows, counted monthly.
	backdate(t, db, first.ID, 10*24*time.Hour)

	if _, err := request(t, db, pol, m.ID, "30", "key-2"); !errors.Is(err, models.ErrLimitExceeded) {
		t.Errorf("got %v, want ErrLimitExceeded", err)
	}

	backdate(t, db, first.ID, 31*24*time.Hour)
	if _, err := request(t, db, pol, m.ID, "30", "key-3"); err != nil {
		t.Errorf("request past monthly window: %v", err)
	}
}

func TestRejectRefundsOnce(t *testing.T) {
	db := testdb.New(t)
	m := memberWithBalance(t, db, "100")

	p, err := request(t, db, policy(t), m.ID, "100", "key-1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	after := testdb.Reload(t, db, m.ID)
	if !after.BalanceNGN.IsZero() {
		t.Fatalf("balance %s after request, want 0", after.BalanceNGN)
	}

	if _, err := payout.Reject(db, p.ID, m.ID, nil); err != nil {
		t.Fatalf("reject: %v", err)
	}
	after = testdb.Reload(t, db, m.ID)
	if want := testdb.Dec(t, "100"); !after.BalanceNGN.Equal(want) {
		t.Errorf("balance %s after rejection, want %s", after.BalanceNGN, want)
	}

	if _, err := payout.Reject(db, p.ID, m.ID, nil); !errors.Is(err, models.ErrAlreadyProcessed) {
		t.Errorf("second rejection: got %v, want ErrAlreadyProcessed", err)
	}
	after = testdb.Reload(t, db, m.ID)
	if want := testdb.Dec(t, "100"); !after.BalanceNGN.Equal(want) {
		t.Errorf("double rejection double-credited: %s", after.BalanceNGN)
	}
}

func TestStateMachineOrder(t *testing.T) {
	db := testdb.New(t)
	m := memberWithBalance(t, db, "100")

	p, err := request(t, db, policy(t), m.ID, "50", "key-1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	// Completion demands a prior approval.
	if _, err := payout.Complete(db, p.ID, m.ID, nil); !errors.Is(err, models.ErrAlreadyProcessed) {
		t.Errorf("complete before approve: got %v, want ErrAlreadyProcessed", err)
	}

	approved, err := payout.Approve(db, p.ID, m.ID, nil)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != models.PayoutApproved || approved.ProcessedBy == nil {
		t.Errorf("approved = %+v", approved)
	}
	if _, err := payout.Approve(db, p.ID, m.ID, nil); !errors.Is(err, models.ErrAlreadyProcessed) {
		t.Errorf("double approve: got %v, want ErrAlreadyProcessed", err)
	}

	completed, err := payout.Complete(db, p.ID, m.ID, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != models.PayoutCompleted {
		t.Errorf("status %s, want completed", completed.Status)
	}

	// Completion moves no money; the deduction happened at request time.
	after := testdb.Reload(t, db, m.ID)
	if want := testdb.Dec(t, "50"); !after.BalanceNGN.Equal(want) {
		t.Errorf("balance %s after completion, want %s", after.BalanceNGN, want)
	}

	if _, err := payout.Reject(db, p.ID, m.ID, nil); !errors.Is(err, models.ErrAlreadyProcessed) {
		t.Errorf("reject after completion: got %v, want ErrAlreadyProcessed", err)
	}
}
