package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"umbra/domain/venue"
)

// Limits is the engine-wide notional clamp applied on top of per-pool
// bounds. A zero MaxOrderSize disables the upper clamp.
type Limits struct {
	MinOrderSize decimal.Decimal
	MaxOrderSize decimal.Decimal
}

// Validator checks raw requests against pool constraints and the closed
// option sets. It is pure: no book state is read or written.
type Validator struct {
	registry     *venue.Registry
	limits       Limits
	assetClass   map[string]string
	defaultClass string
	settlement   map[string][]venue.SettlementType
}

func NewValidator(
	registry *venue.Registry,
	limits Limits,
	assetClass map[string]string,
	defaultClass string,
	settlement map[string][]venue.SettlementType,
) *Validator {
	if defaultClass == "" {
		defaultClass = "equity"
	}
	return &Validator{
		registry:     registry,
		limits:       limits,
		assetClass:   assetClass,
		defaultClass: defaultClass,
		settlement:   settlement,
	}
}

// Validate runs every check and collects all violations, so the caller
// sees the full list in one round trip.
func (v *Validator) Validate(req OrderRequest) (*draft, *ValidationError) {
	var violations []string

	if !req.Qty.IsPositive() {
		violations = append(violations, fmt.Sprintf("quantity must be positive, got %s", req.Qty))
	}
	if !req.Price.IsPositive() {
		violations = append(violations, fmt.Sprintf("price must be positive, got %s", req.Price))
	}

	notional := req.Qty.Mul(req.Price)

	pool, err := v.registry.Get(req.PoolID)
	if err != nil {
		if errors.Is(err, venue.ErrPoolNotFound) {
			violations = append(violations, fmt.Sprintf("unknown pool %q", req.PoolID))
		} else {
			violations = append(violations, err.Error())
		}
	} else {
		if notional.LessThan(pool.MinOrderNotional) {
			violations = append(violations, fmt.Sprintf(
				"notional %s below pool minimum %s", notional, pool.MinOrderNotional))
		}
		if notional.GreaterThan(pool.MaxOrderNotional) {
			violations = append(violations, fmt.Sprintf(
				"notional %s above pool maximum %s", notional, pool.MaxOrderNotional))
		}
	}

	if notional.LessThan(v.limits.MinOrderSize) {
		violations = append(violations, fmt.Sprintf(
			"notional %s below engine minimum %s", notional, v.limits.MinOrderSize))
	}
	if v.limits.MaxOrderSize.IsPositive() && notional.GreaterThan(v.limits.MaxOrderSize) {
		violations = append(violations, fmt.Sprintf(
			"notional %s above engine maximum %s", notional, v.limits.MaxOrderSize))
	}

	privacy, err := venue.ParsePrivacyLevel(req.Privacy)
	if err != nil {
		violations = append(violations, fmt.Sprintf("invalid privacy level %q", req.Privacy))
	}

	settlement, serr := venue.ParseSettlementType(req.Settlement)
	if serr != nil {
		violations = append(violations, fmt.Sprintf("invalid settlement type %q", req.Settlement))
	} else if !v.settlementSupported(req.Symbol, settlement) {
		violations = append(violations, fmt.Sprintf(
			"settlement %s not supported for asset class %q", settlement, v.classOf(req.Symbol)))
	}

	if req.MinFill.IsNegative() || req.MinFill.GreaterThan(req.Qty) {
		violations = append(violations, fmt.Sprintf(
			"minimum fill %s outside (0, %s]", req.MinFill, req.Qty))
	}
	if req.Iceberg && (!req.DisplayQty.IsPositive() || req.DisplayQty.GreaterThan(req.Qty)) {
		violations = append(violations, fmt.Sprintf(
			"iceberg display size %s outside (0, %s]", req.DisplayQty, req.Qty))
	}

	if len(violations) > 0 {
		return nil, newValidationError(violations...)
	}

	return &draft{
		pool:       pool,
		privacy:    privacy,
		settlement: settlement,
		notional:   notional,
	}, nil
}

func (v *Validator) classOf(symbol string) string {
	if class, ok := v.assetClass[symbol]; ok {
		return class
	}
	return v.defaultClass
}

func (v *Validator) settlementSupported(symbol string, st venue.SettlementType) bool {
	class := v.classOf(symbol)
	cycles, ok := v.settlement[class]
	if !ok {
		// No table entry for the class: every cycle is allowed.
		return true
	}
	for _, c := range cycles {
		if c == st {
			return true
		}
	}
	return false
}
