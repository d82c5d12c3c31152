package services

import (
	"testing"

	"github.com/panelbridge/surveylink/internal/models"
)

func TestPlanDistribution_Pooled(t *testing.T) {
	plan, err := PlanDistribution(5, 20, nil, false)
	if err != nil {
		t.Fatalf("PlanDistribution returned error: %v", err)
	}

	if len(plan) != 2 {
		t.Fatalf("plan length = %d, expected 2", len(plan))
	}
	if plan[0].VendorID != nil || plan[1].VendorID != nil {
		t.Error("pooled allocations should have nil vendor")
	}
	if plan[0].LinkType != models.LinkTypeTest || plan[0].Quantity != 5 {
		t.Errorf("first allocation = %s/%d, expected TEST/5", plan[0].LinkType, plan[0].Quantity)
	}
	if plan[1].LinkType != models.LinkTypeLive || plan[1].Quantity != 20 {
		t.Errorf("second allocation = %s/%d, expected LIVE/20", plan[1].LinkType, plan[1].Quantity)
	}
}

func TestPlanDistribution_PerVendorMultiplies(t *testing.T) {
	plan, err := PlanDistribution(10, 40, []uint{1, 2}, true)
	if err != nil {
		t.Fatalf("PlanDistribution returned error: %v", err)
	}

	if total := PlanTotal(plan); total != 100 {
		t.Errorf("PlanTotal = %d, expected 100 (each vendor gets 10 test + 40 live)", total)
	}
	if len(plan) != 4 {
		t.Fatalf("plan length = %d, expected 4", len(plan))
	}
	for _, alloc := range plan {
		if alloc.VendorID == nil {
			t.Fatal("per-vendor allocation has nil vendor")
		}
	}
}

func TestPlanDistribution_PerVendorLargeBatch(t *testing.T) {
	plan, err := PlanDistribution(10, 500, []uint{7, 9}, true)
	if err != nil {
		t.Fatalf("PlanDistribution returned error: %v", err)
	}

	if total := PlanTotal(plan); total != 1020 {
		t.Errorf("PlanTotal = %d, expected 1020", total)
	}
}

func TestPlanDistribution_EvenSplitWithRemainder(t *testing.T) {
	plan, err := PlanDistribution(0, 10, []uint{1, 2, 3}, false)
	if err != nil {
		t.Fatalf("PlanDistribution returned error: %v", err)
	}

	if total := PlanTotal(plan); total != 10 {
		t.Fatalf("PlanTotal = %d, expected 10", total)
	}

	// Remainder goes to the first vendors: 4, 3, 3.
	quantities := []int{plan[0].Quantity, plan[1].Quantity, plan[2].Quantity}
	expected := []int{4, 3, 3}
	for i := range expected {
		if quantities[i] != expected[i] {
			t.Errorf("vendor %d quantity = %d, expected %d", i, quantities[i], expected[i])
		}
	}
}

func TestPlanDistribution_TestAllocationsFirst(t *testing.T) {
	plan, err := PlanDistribution(1, 1, []uint{1, 2}, true)
	if err != nil {
		t.Fatalf("PlanDistribution returned error: %v", err)
	}

	if plan[0].LinkType != models.LinkTypeTest || plan[1].LinkType != models.LinkTypeTest {
		t.Error("TEST allocations should come before LIVE")
	}
	if plan[2].LinkType != models.LinkTypeLive || plan[3].LinkType != models.LinkTypeLive {
		t.Error("LIVE allocations should come after TEST")
	}
}

func TestPlanDistribution_Deterministic(t *testing.T) {
	first, err := PlanDistribution(3, 17, []uint{5, 2, 9}, false)
	if err != nil {
		t.Fatalf("PlanDistribution returned error: %v", err)
	}
	second, _ := PlanDistribution(3, 17, []uint{5, 2, 9}, false)

	if len(first) != len(second) {
		t.Fatalf("plan lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if *first[i].VendorID != *second[i].VendorID ||
			first[i].LinkType != second[i].LinkType ||
			first[i].Quantity != second[i].Quantity {
			t.Errorf("allocation %d differs between runs", i)
		}
	}
}

func TestPlanDistribution_SkipsZeroQuantityVendors(t *testing.T) {
	plan, err := PlanDistribution(0, 2, []uint{1, 2, 3}, false)
	if err != nil {
		t.Fatalf("PlanDistribution returned error: %v", err)
	}

	if len(plan) != 2 {
		t.Errorf("plan length = %d, expected 2 (third vendor gets nothing)", len(plan))
	}
	if total := PlanTotal(plan); total != 2 {
		t.Errorf("PlanTotal = %d, expected 2", total)
	}
}

func TestPlanDistribution_Errors(t *testing.T) {
	if _, err := PlanDistribution(-1, 5, nil, false); err != ErrNegativeCount {
		t.Errorf("negative test count: err = %v, expected ErrNegativeCount", err)
	}
	if _, err := PlanDistribution(5, -1, nil, false); err != ErrNegativeCount {
		t.Errorf("negative live count: err = %v, expected ErrNegativeCount", err)
	}
	if _, err := PlanDistribution(0, 0, []uint{1}, true); err != ErrEmptyPlan {
		t.Errorf("zero counts: err = %v, expected ErrEmptyPlan", err)
	}
}
