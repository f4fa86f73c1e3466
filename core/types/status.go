package types

import "fmt"

// UserStatus is the role a marketplace account holds on the ledger.
type UserStatus int

const (
	StatusShopper UserStatus = iota
	StatusShopOwner
	StatusAdmin
	StatusShopperWaitingApproval

	// StatusUnknown is returned for codes this client does not recognise yet.
	// It is a value, not an error, so callers can keep rendering.
	StatusUnknown UserStatus = -1
)

const (
	LabelShopper                = "Shopper"
	LabelShopOwner              = "Shop owner"
	LabelAdmin                  = "Administrator"
	LabelShopperWaitingApproval = "Shopper (waiting approval)"
	LabelUnknown                = "Unknown"
)

// StatusFromCode maps the ledger's numeric status code to a UserStatus.
func StatusFromCode(code int64) UserStatus {
	switch code {
	case 0:
		return StatusShopper
	case 1:
		return StatusShopOwner
	case 2:
		return StatusAdmin
	case 3:
		return StatusShopperWaitingApproval
	default:
		return StatusUnknown
	}
}

// Code returns the ledger code for the status, or -1 when unknown.
func (s UserStatus) Code() int64 {
	switch s {
	case StatusShopper, StatusShopOwner, StatusAdmin, StatusShopperWaitingApproval:
		return int64(s)
	default:
		return -1
	}
}

func (s UserStatus) String() string {
	switch s {
	case StatusShopper:
		return LabelShopper
	case StatusShopOwner:
		return LabelShopOwner
	case StatusAdmin:
		return LabelAdmin
	case StatusShopperWaitingApproval:
		return LabelShopperWaitingApproval
	default:
		return LabelUnknown
	}
}

func (s UserStatus) IsAdmin() bool { return s == StatusAdmin }

func (s UserStatus) IsShopOwner() bool { return s == StatusShopOwner }

// IsShopper is true for plain shoppers and shoppers waiting for approval.
func (s UserStatus) IsShopper() bool {
	return s == StatusShopper || s == StatusShopperWaitingApproval
}

func (s UserStatus) IsWaitingApproval() bool { return s == StatusShopperWaitingApproval }

// CanOwnStorefronts reports whether the ledger lets this role hold storefronts.
func (s UserStatus) CanOwnStorefronts() bool {
	return s == StatusShopOwner || s == StatusAdmin
}

// MarshalText encodes the status as its display label.
func (s UserStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the display labels produced by MarshalText.
func (s *UserStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case LabelShopper:
		*s = StatusShopper
	case LabelShopOwner:
		*s = StatusShopOwner
	case LabelAdmin:
		*s = StatusAdmin
	case LabelShopperWaitingApproval:
		*s = StatusShopperWaitingApproval
	case LabelUnknown:
		*s = StatusUnknown
	default:
		return fmt.Errorf("types: unknown user status label %q", string(text))
	}
	return nil
}
