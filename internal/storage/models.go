package storage

import (
	"math/big"
	"time"

	"github.com/matrixise/guild-dashboard/internal/dashboard"
	"github.com/shopspring/decimal"
)

// TreasurySnapshot is one recorded point of the guild bank history.
type TreasurySnapshot struct {
	ID             int64
	RecordedAt     time.Time
	GuildBankValue *big.Int
	ExchangeRate   decimal.Decimal
	TotalShares    uint64
	ShareValue     *big.Int
	Members        *int // nil when the count was not available
	Proposals      *int
}

// SnapshotFromView extracts the treasury figures of a Ready view state.
func SnapshotFromView(state dashboard.ViewState, at time.Time) TreasurySnapshot {
	t := state.Treasury
	snap := TreasurySnapshot{
		RecordedAt:     at.UTC(),
		GuildBankValue: orZero(t.GuildBankValue),
		ExchangeRate:   t.ExchangeRate,
		TotalShares:    t.TotalShares,
		ShareValue:     orZero(t.ShareValue),
	}
	if state.Members.State == dashboard.FigureReady {
		n := state.Members.Count
		snap.Members = &n
	}
	if state.Proposals.State == dashboard.FigureReady {
		n := state.Proposals.Count
		snap.Proposals = &n
	}
	return snap
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
