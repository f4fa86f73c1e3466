package types

import "testing"

func TestStatusFromCode(t *testing.T) {
	cases := map[int64]UserStatus{
		0:  StatusShopper,
		1:  StatusShopOwner,
		2:  StatusAdmin,
		3:  StatusShopperWaitingApproval,
		4:  StatusUnknown,
		-1: StatusUnknown,
		99: StatusUnknown,
	}
	for code, want := range cases {
		if got := StatusFromCode(code); got != want {
			t.Fatalf("code %d: got %v want %v", code, got, want)
		}
	}
	for code := int64(0); code < 4; code++ {
		if StatusFromCode(code).Code() != code {
			t.Fatalf("code %d does not round trip", code)
		}
	}
	if StatusUnknown.Code() != -1 {
		t.Fatalf("unknown status should report -1")
	}
}

func TestStatusPredicatesPartition(t *testing.T) {
	cases := []struct {
		status      UserStatus
		admin       bool
		shopOwner   bool
		shopper     bool
		waiting     bool
		canOwnStore bool
	}{
		{StatusShopper, false, false, true, false, false},
		{StatusShopOwner, false, true, false, false, true},
		{StatusAdmin, true, false, false, false, true},
		{StatusShopperWaitingApproval, false, false, true, true, false},
		{StatusUnknown, false, false, false, false, false},
	}
	for _, tc := range cases {
		if tc.status.IsAdmin() != tc.admin || tc.status.IsShopOwner() != tc.shopOwner ||
			tc.status.IsShopper() != tc.shopper || tc.status.IsWaitingApproval() != tc.waiting ||
			tc.status.CanOwnStorefronts() != tc.canOwnStore {
			t.Fatalf("unexpected predicates for %v", tc.status)
		}
		if tc.status == StatusUnknown {
			continue
		}
		exactlyOne := 0
		for _, v := range []bool{tc.status.IsAdmin(), tc.status.IsShopOwner(), tc.status.IsShopper()} {
			if v {
				exactlyOne++
			}
		}
		if exactlyOne != 1 {
			t.Fatalf("%v: expected exactly one role predicate, got %d", tc.status, exactlyOne)
		}
	}
}

func TestStatusTextRoundTrip(t *testing.T) {
	for _, status := range []UserStatus{StatusShopper, StatusShopOwner, StatusAdmin, StatusShopperWaitingApproval, StatusUnknown} {
		text, err := status.MarshalText()
		if err != nil {
			t.Fatalf("marshal %v: %v", status, err)
		}
		var decoded UserStatus
		if err := decoded.UnmarshalText(text); err != nil {
			t.Fatalf("unmarshal %q: %v", text, err)
		}
		if decoded != status {
			t.Fatalf("got %v want %v", decoded, status)
		}
	}
	var s UserStatus
	if err := s.UnmarshalText([]byte("Owner")); err == nil {
		t.Fatalf("expected error for unknown label")
	}
}
