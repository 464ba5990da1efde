package seed

import "testing"

func TestComputeCounts_Default(t *testing.T) {
	general, academic, events, market, confession := computeCounts(10, defaultDistribution)
	sum := general + academic + events + market + confession
	if sum != 10 {
		t.Fatalf("sum mismatch: got %d", sum)
	}
	if general != 4 || academic != 2 || events != 2 || market != 1 || confession != 1 {
		t.Fatalf("unexpected default counts: general=%d academic=%d events=%d market=%d confession=%d",
			general, academic, events, market, confession)
	}
}

func TestComputeCounts_MarketplaceOverride(t *testing.T) {
	d, ok := CategoryDistributions["marketplace"]
	if !ok {
		t.Fatalf("marketplace distribution not found")
	}
	general, academic, events, market, confession := computeCounts(10, d)
	sum := general + academic + events + market + confession
	if sum != 10 {
		t.Fatalf("sum mismatch: got %d", sum)
	}
	if market != 9 {
		t.Fatalf("expected 9 market posts, got %d", market)
	}
}

func TestComputeCounts_RemainderGoesToGeneral(t *testing.T) {
	general, academic, events, market, confession := computeCounts(7, defaultDistribution)
	sum := general + academic + events + market + confession
	if sum != 7 {
		t.Fatalf("sum mismatch: got %d", sum)
	}
	if general < 1 {
		t.Fatalf("expected rounding remainder in general bucket, got %d", general)
	}
}

func TestCategoriesFor_LengthMatchesTotal(t *testing.T) {
	for _, total := range []int{0, 1, 5, 33} {
		cats := categoriesFor(total, defaultDistribution)
		if len(cats) != total {
			t.Fatalf("total %d: got %d categories", total, len(cats))
		}
	}
}
