package datasource

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"
)

// MemberSet holds the identifiers of active members with shares.
type MemberSet []string

// Len returns the number of members.
func (m MemberSet) Len() int { return len(m) }

// ProposalSet holds proposal identifiers.
type ProposalSet []string

// Len returns the number of proposals.
func (p ProposalSet) Len() int { return len(p) }

// TreasuryMetadata is an immutable snapshot of the guild's financial figures.
// Refetches replace it wholesale.
type TreasuryMetadata struct {
	GuildBankValue *big.Int        // base units held by the guild bank
	ExchangeRate   decimal.Decimal // fiat per whole token
	TotalShares    uint64
	ShareValue     *big.Int // base units per share
}

// Querier is the remote data source. Each method performs one request with a
// fixed query shape.
type Querier interface {
	Members(ctx context.Context) (MemberSet, error)
	Proposals(ctx context.Context) (ProposalSet, error)
	Metadata(ctx context.Context) (TreasuryMetadata, error)
}
