package dashboard

import (
	"github.com/matrixise/guild-dashboard/internal/units"
)

// Summary is the display projection of a ViewState.
type Summary struct {
	Status         Phase  `json:"status"`
	Error          string `json:"error,omitempty"`
	Members        string `json:"members"`
	Proposals      string `json:"proposals"`
	GuildBankValue string `json:"guild_bank_value,omitempty"`
	TotalEther     string `json:"total_ether,omitempty"`
	ShareValue     string `json:"share_value,omitempty"`
	TotalShares    uint64 `json:"total_shares"`
	ExchangeRate   string `json:"exchange_rate,omitempty"`
}

// Summarize formats a view state for display. Treasury figures are only
// filled in once the view is Ready.
func Summarize(state ViewState, decimals uint8, loc units.Locale) Summary {
	s := Summary{
		Status:    state.Phase,
		Error:     state.Err,
		Members:   state.Members.Label(),
		Proposals: state.Proposals.Label(),
	}
	if state.Phase != PhaseReady {
		return s
	}

	t := state.Treasury
	s.GuildBankValue = units.ToFiat(t.GuildBankValue, decimals, t.ExchangeRate, loc)
	s.ShareValue = units.ToFiat(t.ShareValue, decimals, t.ExchangeRate, loc)
	s.TotalShares = t.TotalShares
	s.ExchangeRate = t.ExchangeRate.String()

	if ether, err := units.ToHumanAmount(t.GuildBankValue, decimals); err == nil {
		s.TotalEther = ether
	} else {
		s.TotalEther = "0"
	}
	return s
}
