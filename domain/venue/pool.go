// Package venue holds the static catalog of private trading pools the
// matching engine runs against. Pools are created at bootstrap and are
// immutable afterwards except for participant membership.
package venue

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeSchedule holds maker/taker rates as fractions of executed notional.
type FeeSchedule struct {
	Maker decimal.Decimal
	Taker decimal.Decimal
}

type Pool struct {
	ID   string
	Name string

	// Capacity bounds the total notional resting in this pool's books.
	Capacity decimal.Decimal

	MinOrderNotional decimal.Decimal
	MaxOrderNotional decimal.Decimal

	Fees       FeeSchedule
	Privacy    PrivacyLevel
	Settlement SettlementType

	participants map[string]struct{}

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewPool(id, name string, capacity, minNotional, maxNotional decimal.Decimal, fees FeeSchedule, privacy PrivacyLevel, settlement SettlementType, now time.Time) *Pool {
	return &Pool{
		ID:               id,
		Name:             name,
		Capacity:         capacity,
		MinOrderNotional: minNotional,
		MaxOrderNotional: maxNotional,
		Fees:             fees,
		Privacy:          privacy,
		Settlement:       settlement,
		participants:     make(map[string]struct{}),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (p *Pool) ParticipantCount() int {
	return len(p.participants)
}

func (p *Pool) HasParticipant(clientID string) bool {
	_, ok := p.participants[clientID]
	return ok
}
