//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestCreateCoupon_StaffOnly(t *testing.T) {
	req := couponRequest{PercentOff: 10, ApplicableKinds: []string{"package"}}

	resp := doJSON(t, http.MethodPost, "/api/coupons", req, memberToken)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("member: expected 403, got %d", resp.StatusCode)
	}
}

func TestCreateCoupon_GeneratedCode(t *testing.T) {
	req := couponRequest{PercentOff: 25, ApplicableKinds: []string{"package"}, MaxUse: 10}

	resp := doJSON(t, http.MethodPost, "/api/coupons", req, staffToken)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	created := decodeJSON[couponResponse](t, resp)
	if len(created.Code) != 8 {
		t.Errorf("code %q: expected 8 characters", created.Code)
	}
	if !created.Active {
		t.Error("created coupon not active")
	}
	if created.MaxUse != 10 {
		t.Errorf("max_use: got %d, want 10", created.MaxUse)
	}
}

func TestCreateCoupon_ExplicitCode(t *testing.T) {
	req := couponRequest{Code: "ITSUMMER", Value: "5.00", ApplicableKinds: []string{"package"}}

	resp := doJSON(t, http.MethodPost, "/api/coupons", req, staffToken)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	// Reusing the code conflicts.
	dup := doJSON(t, http.MethodPost, "/api/coupons", req, staffToken)
	defer dup.Body.Close()
	if dup.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", dup.StatusCode)
	}
}

func TestCreateCoupon_ConflictingDiscount(t *testing.T) {
	req := couponRequest{Value: "5.00", PercentOff: 10}

	resp := doJSON(t, http.MethodPost, "/api/coupons", req, staffToken)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUpdateCoupon(t *testing.T) {
	create := couponRequest{Code: "PATCHME1", PercentOff: 10, ApplicableKinds: []string{"package"}}
	created := doJSON(t, http.MethodPost, "/api/coupons", create, staffToken)
	created.Body.Close()
	if created.StatusCode != http.StatusCreated {
		t.Fatalf("setup create: expected 201, got %d", created.StatusCode)
	}

	patch := map[string]any{"active": false, "max_use_per_user": 2}
	resp := doJSON(t, http.MethodPatch, "/api/coupons/PATCHME1", patch, staffToken)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	updated := decodeJSON[couponResponse](t, resp)
	if updated.Active {
		t.Error("coupon still active after patch")
	}
	if updated.MaxUsePerUser != 2 {
		t.Errorf("max_use_per_user: got %d, want 2", updated.MaxUsePerUser)
	}
	if updated.PercentOff != 10 {
		t.Errorf("percent_off changed: got %d, want 10", updated.PercentOff)
	}
}

func TestUpdateCoupon_NotFound(t *testing.T) {
	patch := map[string]any{"max_use": 5}
	resp := doJSON(t, http.MethodPatch, "/api/coupons/MISSING9", patch, staffToken)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
