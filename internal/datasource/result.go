package datasource

// Status identifies the active variant of a FetchResult.
type Status int

const (
	StatusPending Status = iota
	StatusFailed
	StatusSucceeded
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFailed:
		return "failed"
	case StatusSucceeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

// FetchResult is the outcome of one asynchronous request: pending, failed
// with a human-readable reason, or succeeded with a value. The zero value is
// Pending.
type FetchResult[T any] struct {
	status Status
	reason string
	value  T
}

// Pending returns a result for a request that has not resolved yet.
func Pending[T any]() FetchResult[T] {
	return FetchResult[T]{status: StatusPending}
}

// Failed returns a result carrying the failure description.
func Failed[T any](reason string) FetchResult[T] {
	return FetchResult[T]{status: StatusFailed, reason: reason}
}

// Succeeded returns a result carrying the decoded payload.
func Succeeded[T any](value T) FetchResult[T] {
	return FetchResult[T]{status: StatusSucceeded, value: value}
}

func (r FetchResult[T]) Status() Status { return r.status }

func (r FetchResult[T]) IsPending() bool { return r.status == StatusPending }

func (r FetchResult[T]) IsFailed() bool { return r.status == StatusFailed }

func (r FetchResult[T]) IsSucceeded() bool { return r.status == StatusSucceeded }

// Err returns the failure reason, empty unless the result is Failed.
func (r FetchResult[T]) Err() string { return r.reason }

// Value returns the payload and whether the result is Succeeded.
func (r FetchResult[T]) Value() (T, bool) {
	return r.value, r.status == StatusSucceeded
}
