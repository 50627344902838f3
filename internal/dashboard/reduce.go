// Package dashboard combines the data source subscriptions into a single view
// state for the treasury dashboard.
package dashboard

import (
	"strconv"

	"github.com/matrixise/guild-dashboard/internal/datasource"
)

// Phase is the overall state of the dashboard view.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseFailed  Phase = "failed"
	PhaseReady   Phase = "ready"
)

// FigureState is the state of a supplementary count widget.
type FigureState string

const (
	FigureLoading     FigureState = "loading"
	FigureUnavailable FigureState = "unavailable"
	FigureReady       FigureState = "ready"
)

// Figure is a member or proposal count as displayed next to the treasury.
type Figure struct {
	State FigureState
	Count int
}

// Label renders the figure: the count, "-" while loading, "NA" on failure.
func (f Figure) Label() string {
	switch f.State {
	case FigureReady:
		return strconv.Itoa(f.Count)
	case FigureUnavailable:
		return "NA"
	default:
		return "-"
	}
}

// Diagnostic reports a degraded figure. It is logged, never shown as a failure.
type Diagnostic struct {
	Query  string
	Reason string
}

// ViewState is derived from the three fetch results and never stored as
// the source of truth.
type ViewState struct {
	Phase       Phase
	Err         string // metadata failure, set when Phase is PhaseFailed
	Members     Figure
	Proposals   Figure
	Treasury    datasource.TreasuryMetadata // set when Phase is PhaseReady
	Diagnostics []Diagnostic
}

// Settled reports whether the view will not change until a refetch:
// metadata failed, or it succeeded and both figures resolved.
func (v ViewState) Settled() bool {
	switch v.Phase {
	case PhaseFailed:
		return true
	case PhaseReady:
		return v.Members.State != FigureLoading && v.Proposals.State != FigureLoading
	default:
		return false
	}
}

// Reduce combines the three results. Treasury metadata gates the whole view:
// pending metadata means Loading, failed metadata means Failed. Once metadata
// is available, member and proposal failures only degrade their own figure.
func Reduce(
	members datasource.FetchResult[datasource.MemberSet],
	proposals datasource.FetchResult[datasource.ProposalSet],
	metadata datasource.FetchResult[datasource.TreasuryMetadata],
) ViewState {
	switch metadata.Status() {
	case datasource.StatusPending:
		return ViewState{Phase: PhaseLoading}
	case datasource.StatusFailed:
		return ViewState{Phase: PhaseFailed, Err: metadata.Err()}
	}

	treasury, _ := metadata.Value()
	state := ViewState{Phase: PhaseReady, Treasury: treasury}

	var diag *Diagnostic
	state.Members, diag = figure(datasource.QueryMembers, members)
	if diag != nil {
		state.Diagnostics = append(state.Diagnostics, *diag)
	}
	state.Proposals, diag = figure(datasource.QueryProposals, proposals)
	if diag != nil {
		state.Diagnostics = append(state.Diagnostics, *diag)
	}
	return state
}

// ReduceSnapshot is Reduce over an adapter snapshot.
func ReduceSnapshot(s datasource.Snapshot) ViewState {
	return Reduce(s.Members, s.Proposals, s.Metadata)
}

type counted interface {
	Len() int
}

func figure[T counted](query string, r datasource.FetchResult[T]) (Figure, *Diagnostic) {
	switch r.Status() {
	case datasource.StatusFailed:
		return Figure{State: FigureUnavailable}, &Diagnostic{Query: query, Reason: r.Err()}
	case datasource.StatusSucceeded:
		v, _ := r.Value()
		return Figure{State: FigureReady, Count: v.Len()}, nil
	default:
		return Figure{State: FigureLoading}, nil
	}
}
