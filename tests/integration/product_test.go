//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 7 {
		t.Fatalf("expected 7 products, got %d", len(products))
	}
}

func TestListProducts_Fields(t *testing.T) {
	resp := doGet(t, "/api/products", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	byID := make(map[string]*productResponse, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	membership := byID["membership-student"]
	if membership == nil {
		t.Fatal("product membership-student not found")
	}
	if membership.Kind != "membership" {
		t.Errorf("kind: got %q, want membership", membership.Kind)
	}
	if membership.Price != 50 {
		t.Errorf("price: got %v, want 50", membership.Price)
	}
	if membership.DurationDays != 365 {
		t.Errorf("duration_days: got %d, want 365", membership.DurationDays)
	}
	if len(membership.AcademicLevels) != 2 {
		t.Errorf("academic_levels: got %v, want 2 entries", membership.AcademicLevels)
	}

	// Timeslot capacity comes from the owning workplace.
	slot := byID["timeslot-monday-am"]
	if slot == nil {
		t.Fatal("product timeslot-monday-am not found")
	}
	if slot.Seats != 12 {
		t.Errorf("seats: got %d, want 12 (workplace capacity)", slot.Seats)
	}
	if slot.WorkplaceID != "wp-downtown" {
		t.Errorf("workplace_id: got %q, want wp-downtown", slot.WorkplaceID)
	}
	if slot.StartAt == "" || slot.EndAt == "" {
		t.Error("timeslot start_at/end_at not present")
	}

	// Retirement capacity is its own seat count.
	retirement := byID["retirement-fall"]
	if retirement == nil {
		t.Fatal("product retirement-fall not found")
	}
	if retirement.Seats != 40 {
		t.Errorf("seats: got %d, want 40", retirement.Seats)
	}
	if retirement.StartAt != "" {
		t.Errorf("retirement start_at: got %q, want empty", retirement.StartAt)
	}
}
