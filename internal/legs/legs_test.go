package legs_test

import (
	"testing"

	"github.com/stanmart1/rest-empire-sub000/internal/hierarchy"
	"github.com/stanmart1/rest-empire-sub000/internal/legs"
	"github.com/stanmart1/rest-empire-sub000/internal/testdb"
)

func TestBreakdownRanksLegsByTurnover(t *testing.T) {
	db := testdb.New(t)
	root := testdb.AddMember(t, db, "root", nil, true)
	l1 := testdb.AddMember(t, db, "leg1", &root.ID, true)
	l2 := testdb.AddMember(t, db, "leg2", &root.ID, true)
	l3 := testdb.AddMember(t, db, "leg3", &root.ID, true)
	deep := testdb.AddMember(t, db, "deep", &l2.ID, true)

	// leg2's subtree outweighs the rest through its recruit.
	for member, amount := range map[uint]string{
		l1.ID:   "500",
		l2.ID:   "200",
		deep.ID: "900",
		l3.ID:   "300",
	} {
		if err := hierarchy.ApplyTurnover(db, member, testdb.Dec(t, amount)); err != nil {
			t.Fatalf("apply turnover: %v", err)
		}
	}

	bd, err := legs.Compute(db, root.ID)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	if bd.FirstLeg == nil || bd.FirstLeg.MemberID != l2.ID {
		t.Fatalf("first leg = %+v, want member %d", bd.FirstLeg, l2.ID)
	}
	if want := testdb.Dec(t, "1100"); !bd.FirstLeg.Turnover.Equal(want) {
		t.Errorf("first leg turnover %s, want %s", bd.FirstLeg.Turnover, want)
	}
	if bd.FirstLeg.MemberCount != 2 {
		t.Errorf("first leg member count %d, want 2", bd.FirstLeg.MemberCount)
	}
	if bd.SecondLeg == nil || bd.SecondLeg.MemberID != l1.ID {
		t.Fatalf("second leg = %+v, want member %d", bd.SecondLeg, l1.ID)
	}
	if want := testdb.Dec(t, "300"); !bd.OtherTurnover.Equal(want) {
		t.Errorf("other legs turnover %s, want %s", bd.OtherTurnover, want)
	}
	if bd.OtherMemberCount != 1 {
		t.Errorf("other legs member count %d, want 1", bd.OtherMemberCount)
	}
	if want := testdb.Dec(t, "1900"); !bd.TotalTurnover.Equal(want) {
		t.Errorf("total %s, want %s", bd.TotalTurnover, want)
	}

	// 1100/1900 of the volume sits in the first leg.
	want := testdb.Dec(t, "1100").Mul(testdb.Dec(t, "100")).Div(testdb.Dec(t, "1900"))
	if !bd.FirstLeg.Percentage.Equal(want) {
		t.Errorf("first leg percentage %s, want %s", bd.FirstLeg.Percentage, want)
	}
}

func TestBreakdownTieBreaksByMemberID(t *testing.T) {
	db := testdb.New(t)
	root := testdb.AddMember(t, db, "root", nil, true)
	l1 := testdb.AddMember(t, db, "leg1", &root.ID, true)
	l2 := testdb.AddMember(t, db, "leg2", &root.ID, true)

	for _, id := range []uint{l1.ID, l2.ID} {
		if err := hierarchy.ApplyTurnover(db, id, testdb.Dec(t, "400")); err != nil {
			t.Fatalf("apply turnover: %v", err)
		}
	}

	for run := 0; run < 3; run++ {
		bd, err := legs.Compute(db, root.ID)
		if err != nil {
			t.Fatalf("compute: %v", err)
		}
		if bd.FirstLeg.MemberID != l1.ID || bd.SecondLeg.MemberID != l2.ID {
			t.Fatalf("run %d: tie broken as (%d, %d), want (%d, %d)",
				run, bd.FirstLeg.MemberID, bd.SecondLeg.MemberID, l1.ID, l2.ID)
		}
	}
}

func TestBreakdownNoRecruits(t *testing.T) {
	db := testdb.New(t)
	solo := testdb.AddMember(t, db, "solo", nil, true)

	bd, err := legs.Compute(db, solo.ID)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(bd.AllLegs) != 0 || bd.FirstLeg != nil || bd.SecondLeg != nil {
		t.Errorf("expected empty breakdown, got %+v", bd)
	}
	if !bd.TotalTurnover.IsZero() || !bd.OtherTurnover.IsZero() {
		t.Errorf("expected zero turnover, got total %s other %s", bd.TotalTurnover, bd.OtherTurnover)
	}
}

func TestBreakdownZeroVolumePercentages(t *testing.T) {
	db := testdb.New(t)
	root := testdb.AddMember(t, db, "root", nil, true)
	testdb.AddMember(t, db, "quiet", &root.ID, true)

	bd, err := legs.Compute(db, root.ID)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(bd.AllLegs) != 1 {
		t.Fatalf("expected 1 leg, got %d", len(bd.AllLegs))
	}
	if !bd.AllLegs[0].Percentage.IsZero() {
		t.Errorf("zero-volume leg percentage %s, want 0", bd.AllLegs[0].Percentage)
	}
}
