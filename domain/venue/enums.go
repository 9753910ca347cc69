package venue

import "fmt"

// PrivacyLevel and SettlementType arrive as free-form strings at the
// boundary and are narrowed to closed enums here. Anything outside the
// enumeration is rejected during validation, never stored.

type PrivacyLevel uint8

const (
	PrivacyStandard PrivacyLevel = iota
	PrivacyEnhanced
	PrivacyMaximum
)

func (l PrivacyLevel) String() string {
	switch l {
	case PrivacyStandard:
		return "Standard"
	case PrivacyEnhanced:
		return "Enhanced"
	case PrivacyMaximum:
		return "Maximum"
	default:
		return "Unknown"
	}
}

func ParsePrivacyLevel(s string) (PrivacyLevel, error) {
	switch s {
	case "Standard":
		return PrivacyStandard, nil
	case "Enhanced":
		return PrivacyEnhanced, nil
	case "Maximum":
		return PrivacyMaximum, nil
	default:
		return 0, fmt.Errorf("venue: unknown privacy level %q", s)
	}
}

// SettlementType is the T+N settlement cycle label. The engine treats it
// as opaque beyond validation.
type SettlementType uint8

const (
	SettleT0 SettlementType = iota
	SettleT1
	SettleT2
	SettleT3
)

func (t SettlementType) String() string {
	switch t {
	case SettleT0:
		return "T+0"
	case SettleT1:
		return "T+1"
	case SettleT2:
		return "T+2"
	case SettleT3:
		return "T+3"
	default:
		return "Unknown"
	}
}

func ParseSettlementType(s string) (SettlementType, error) {
	switch s {
	case "T+0":
		return SettleT0, nil
	case "T+1":
		return SettleT1, nil
	case "T+2":
		return SettleT2, nil
	case "T+3":
		return SettleT3, nil
	default:
		return 0, fmt.Errorf("venue: unknown settlement type %q", s)
	}
}
