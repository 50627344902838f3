package dashboard

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/matrixise/guild-dashboard/internal/datasource"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func treasury() datasource.TreasuryMetadata {
	return datasource.TreasuryMetadata{
		GuildBankValue: big.NewInt(2_000000000000000000),
		ExchangeRate:   decimal.RequireFromString("150.25"),
		TotalShares:    100,
		ShareValue:     big.NewInt(20000000000000000),
	}
}

func memberResults() []datasource.FetchResult[datasource.MemberSet] {
	return []datasource.FetchResult[datasource.MemberSet]{
		datasource.Pending[datasource.MemberSet](),
		datasource.Failed[datasource.MemberSet]("members down"),
		datasource.Succeeded(datasource.MemberSet{"a", "b", "c"}),
	}
}

func proposalResults() []datasource.FetchResult[datasource.ProposalSet] {
	return []datasource.FetchResult[datasource.ProposalSet]{
		datasource.Pending[datasource.ProposalSet](),
		datasource.Failed[datasource.ProposalSet]("proposals down"),
		datasource.Succeeded(datasource.ProposalSet{"p1", "p2"}),
	}
}

func metadataResults() []datasource.FetchResult[datasource.TreasuryMetadata] {
	return []datasource.FetchResult[datasource.TreasuryMetadata]{
		datasource.Pending[datasource.TreasuryMetadata](),
		datasource.Failed[datasource.TreasuryMetadata]("metadata down"),
		datasource.Succeeded(treasury()),
	}
}

func TestReduceIsTotal(t *testing.T) {
	phases := map[Phase]int{}

	for _, m := range memberResults() {
		for _, p := range proposalResults() {
			for _, md := range metadataResults() {
				name := fmt.Sprintf("members=%s,proposals=%s,metadata=%s", m.Status(), p.Status(), md.Status())
				t.Run(name, func(t *testing.T) {
					var state ViewState
					require.NotPanics(t, func() { state = Reduce(m, p, md) })

					switch md.Status() {
					case datasource.StatusPending:
						assert.Equal(t, PhaseLoading, state.Phase)
					case datasource.StatusFailed:
						assert.Equal(t, PhaseFailed, state.Phase)
						assert.Equal(t, "metadata down", state.Err)
					case datasource.StatusSucceeded:
						assert.Equal(t, PhaseReady, state.Phase)
						assert.Empty(t, state.Err)
					}
					phases[state.Phase]++
				})
			}
		}
	}

	assert.Equal(t, 9, phases[PhaseLoading])
	assert.Equal(t, 9, phases[PhaseFailed])
	assert.Equal(t, 9, phases[PhaseReady])
}

func TestReduceReadyFigures(t *testing.T) {
	md := datasource.Succeeded(treasury())

	tests := []struct {
		name          string
		members       datasource.FetchResult[datasource.MemberSet]
		proposals     datasource.FetchResult[datasource.ProposalSet]
		wantMembers   string
		wantProposals string
		wantDiag      []Diagnostic
	}{
		{
			name:          "both loaded",
			members:       datasource.Succeeded(datasource.MemberSet{"a", "b", "c"}),
			proposals:     datasource.Succeeded(datasource.ProposalSet{"p1", "p2"}),
			wantMembers:   "3",
			wantProposals: "2",
		},
		{
			name:          "members failed, proposals loaded",
			members:       datasource.Failed[datasource.MemberSet]("timeout"),
			proposals:     datasource.Succeeded(datasource.ProposalSet{"p1"}),
			wantMembers:   "NA",
			wantProposals: "1",
			wantDiag:      []Diagnostic{{Query: "members", Reason: "timeout"}},
		},
		{
			name:          "members failed, proposals loading",
			members:       datasource.Failed[datasource.MemberSet]("timeout"),
			proposals:     datasource.Pending[datasource.ProposalSet](),
			wantMembers:   "NA",
			wantProposals: "-",
			wantDiag:      []Diagnostic{{Query: "members", Reason: "timeout"}},
		},
		{
			name:          "both failed",
			members:       datasource.Failed[datasource.MemberSet]("a"),
			proposals:     datasource.Failed[datasource.ProposalSet]("b"),
			wantMembers:   "NA",
			wantProposals: "NA",
			wantDiag: []Diagnostic{
				{Query: "members", Reason: "a"},
				{Query: "proposals", Reason: "b"},
			},
		},
		{
			name:          "empty sets count as zero",
			members:       datasource.Succeeded(datasource.MemberSet{}),
			proposals:     datasource.Succeeded(datasource.ProposalSet(nil)),
			wantMembers:   "0",
			wantProposals: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Reduce(tt.members, tt.proposals, md)
			assert.Equal(t, PhaseReady, state.Phase)
			assert.Equal(t, tt.wantMembers, state.Members.Label())
			assert.Equal(t, tt.wantProposals, state.Proposals.Label())
			assert.Equal(t, tt.wantDiag, state.Diagnostics)
			assert.Equal(t, uint64(100), state.Treasury.TotalShares)
		})
	}
}

func TestReduceIgnoresFiguresUntilMetadataResolves(t *testing.T) {
	state := Reduce(
		datasource.Failed[datasource.MemberSet]("members down"),
		datasource.Succeeded(datasource.ProposalSet{"p"}),
		datasource.Pending[datasource.TreasuryMetadata](),
	)
	assert.Equal(t, PhaseLoading, state.Phase)
	assert.Empty(t, state.Diagnostics)
}

func TestFigureLabel(t *testing.T) {
	assert.Equal(t, "-", Figure{}.Label())
	assert.Equal(t, "-", Figure{State: FigureLoading}.Label())
	assert.Equal(t, "NA", Figure{State: FigureUnavailable, Count: 4}.Label())
	assert.Equal(t, "12", Figure{State: FigureReady, Count: 12}.Label())
}

func TestViewStateSettled(t *testing.T) {
	tests := []struct {
		name  string
		state ViewState
		want  bool
	}{
		{"loading", ViewState{Phase: PhaseLoading}, false},
		{"failed", ViewState{Phase: PhaseFailed, Err: "boom"}, true},
		{"ready with pending figure", ViewState{
			Phase:     PhaseReady,
			Members:   Figure{State: FigureReady, Count: 2},
			Proposals: Figure{State: FigureLoading},
		}, false},
		{"ready with unavailable figure", ViewState{
			Phase:     PhaseReady,
			Members:   Figure{State: FigureUnavailable},
			Proposals: Figure{State: FigureReady, Count: 1},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.Settled())
		})
	}
}
