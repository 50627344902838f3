package datasource

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

const (
	QueryMembers   = "members"
	QueryProposals = "proposals"
	QueryMetadata  = "metadata"
)

// Snapshot is the current result of all three subscriptions.
type Snapshot struct {
	Members   FetchResult[MemberSet]
	Proposals FetchResult[ProposalSet]
	Metadata  FetchResult[TreasuryMetadata]
}

// Adapter runs the members, proposals and metadata subscriptions against a
// Querier. The subscriptions are independent: refetching or failing one never
// touches the others.
type Adapter struct {
	members   *Subscription[MemberSet]
	proposals *Subscription[ProposalSet]
	metadata  *Subscription[TreasuryMetadata]

	mu       sync.Mutex
	closed   bool
	last     Snapshot // last snapshot handed to onChange
	frozen   atomic.Pointer[Snapshot]
	onChange func(Snapshot)
	logger   *slog.Logger
}

// NewAdapter wires the three subscriptions to querier. onChange receives a
// fresh Snapshot after every individual transition; calls are serialized.
// onChange must not call Close.
func NewAdapter(querier Querier, onChange func(Snapshot), logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Adapter{onChange: onChange, logger: logger}
	a.members = NewSubscription(QueryMembers, querier.Members, a.notify, logger)
	a.proposals = NewSubscription(QueryProposals, querier.Proposals, a.notify, logger)
	a.metadata = NewSubscription(QueryMetadata, querier.Metadata, a.notify, logger)
	a.last = a.read()
	return a
}

func (a *Adapter) notify() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.last = a.read()
	if a.onChange != nil {
		a.onChange(a.last)
	}
}

// Start issues all three requests concurrently.
func (a *Adapter) Start(ctx context.Context) {
	a.logger.Info("Starting data source subscriptions")
	a.RefetchAll(ctx)
}

// RefetchAll re-triggers every subscription. It never blocks.
func (a *Adapter) RefetchAll(ctx context.Context) {
	a.metadata.Refetch(ctx)
	a.members.Refetch(ctx)
	a.proposals.Refetch(ctx)
}

func (a *Adapter) RefetchMembers(ctx context.Context) { a.members.Refetch(ctx) }

func (a *Adapter) RefetchProposals(ctx context.Context) { a.proposals.Refetch(ctx) }

func (a *Adapter) RefetchMetadata(ctx context.Context) { a.metadata.Refetch(ctx) }

// Refetch re-triggers the subscription with the given query name and reports
// whether the name is known.
func (a *Adapter) Refetch(ctx context.Context, query string) bool {
	switch query {
	case QueryMembers:
		a.RefetchMembers(ctx)
	case QueryProposals:
		a.RefetchProposals(ctx)
	case QueryMetadata:
		a.RefetchMetadata(ctx)
	default:
		return false
	}
	return true
}

// Snapshot reads the current result of each subscription. After Close it
// returns the last snapshot delivered to onChange.
func (a *Adapter) Snapshot() Snapshot {
	if frozen := a.frozen.Load(); frozen != nil {
		return *frozen
	}
	return a.read()
}

func (a *Adapter) read() Snapshot {
	return Snapshot{
		Members:   a.members.Result(),
		Proposals: a.proposals.Result(),
		Metadata:  a.metadata.Result(),
	}
}

// Close tears down all subscriptions. No onChange call happens after Close
// returns.
func (a *Adapter) Close() {
	a.mu.Lock()
	a.members.Close()
	a.proposals.Close()
	a.metadata.Close()
	a.closed = true
	last := a.last
	a.frozen.Store(&last)
	a.mu.Unlock()

	a.logger.Info("Data source subscriptions closed")
}

// Wait blocks until all in-flight requests have returned.
func (a *Adapter) Wait() {
	a.members.Wait()
	a.proposals.Wait()
	a.metadata.Wait()
}
