// Package allowance coordinates a user's request to let the guild contract
// spend their deposit token.
package allowance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/matrixise/guild-dashboard/internal/units"
)

var (
	// ErrSubmissionInFlight is returned when Submit is called while a request
	// is already being authorized.
	ErrSubmissionInFlight = errors.New("allowance request already submitting")

	// ErrAlreadyConfirmed is returned when Submit is called after a confirmed
	// request without Reset.
	ErrAlreadyConfirmed = errors.New("allowance request already confirmed")

	// ErrAwaitingConfirmation is returned when Submit is called while a sent
	// authorization has not been confirmed, until Reset.
	ErrAwaitingConfirmation = errors.New("allowance request awaiting confirmation")
)

// Status is the lifecycle state of an allowance request.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusPending    Status = "pending" // sent, confirmation timed out
	StatusConfirmed  Status = "confirmed"
	StatusRejected   Status = "rejected"
)

// Approver grants spender an allowance of amount base units from owner.
// It returns the transaction hash once the authorization is final. When the
// authorization was sent but its outcome is unknown, it returns the hash with
// an error reporting Timeout() == true.
type Approver interface {
	Approve(ctx context.Context, owner, spender common.Address, amount *big.Int) (common.Hash, error)
}

// Request is a copy of the coordinator state.
type Request struct {
	RawInput     string
	ParsedAmount *big.Int // nil while RawInput is not a valid amount
	Status       Status
	Validation   string // inline message for invalid input
	TxHash       common.Hash
	Err          string // authorization failure, set when Rejected
}

// Config holds the coordinator inputs supplied by the caller's session.
type Config struct {
	Owner    common.Address // authenticated user
	Spender  common.Address // guild contract
	Decimals uint8
	Approver Approver
	Logger   *slog.Logger
}

// Coordinator is the allowance request state machine:
// Idle -> Submitting -> Confirmed | Rejected | Pending, and back to Idle on
// Reset.
type Coordinator struct {
	owner    common.Address
	spender  common.Address
	decimals uint8
	approver Approver
	logger   *slog.Logger

	mu  sync.Mutex
	req Request
}

// NewCoordinator creates an idle coordinator.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Approver == nil {
		return nil, errors.New("approver is required")
	}
	if cfg.Spender == (common.Address{}) {
		return nil, errors.New("spender address is required")
	}
	if cfg.Owner == (common.Address{}) {
		return nil, errors.New("owner address is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Coordinator{
		owner:    cfg.Owner,
		spender:  cfg.Spender,
		decimals: cfg.Decimals,
		approver: cfg.Approver,
		logger:   cfg.Logger,
		req:      Request{Status: StatusIdle},
	}, nil
}

// Owner returns the session user the coordinator acts for.
func (c *Coordinator) Owner() common.Address { return c.owner }

// Spender returns the address receiving the allowance.
func (c *Coordinator) Spender() common.Address { return c.spender }

// Request returns the current state.
func (c *Coordinator) Request() Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Coordinator) snapshot() Request {
	r := c.req
	if r.ParsedAmount != nil {
		r.ParsedAmount = new(big.Int).Set(r.ParsedAmount)
	}
	return r
}

// SetInput records the user's raw input and re-parses it. Input is ignored
// while a submission is in flight.
func (c *Coordinator) SetInput(raw string) Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.req.Status == StatusSubmitting {
		return c.snapshot()
	}
	c.req.RawInput = raw
	c.req.ParsedAmount = nil
	c.req.Validation = ""
	if amount, err := units.ParseHumanAmount(raw, c.decimals); err == nil {
		c.req.ParsedAmount = amount
	} else if raw != "" {
		c.req.Validation = validationMessage(err)
	}
	return c.snapshot()
}

// Submit parses the current input and issues exactly one authorization call
// with the amount in base units. Invalid input leaves the coordinator Idle
// and returns the parse error without contacting the approver. Failed
// authorizations are not retried. A sent authorization whose confirmation
// timed out leaves the coordinator Pending with a nil error.
func (c *Coordinator) Submit(ctx context.Context) (Request, error) {
	c.mu.Lock()
	switch c.req.Status {
	case StatusSubmitting:
		c.mu.Unlock()
		return c.Request(), ErrSubmissionInFlight
	case StatusConfirmed:
		c.mu.Unlock()
		return c.Request(), ErrAlreadyConfirmed
	case StatusPending:
		c.mu.Unlock()
		return c.Request(), ErrAwaitingConfirmation
	}

	amount, err := units.ParseHumanAmount(c.req.RawInput, c.decimals)
	if err != nil {
		c.req.Status = StatusIdle
		c.req.ParsedAmount = nil
		c.req.Validation = validationMessage(err)
		r := c.snapshot()
		c.mu.Unlock()
		c.logger.Debug("Allowance input rejected", "input", r.RawInput, "error", err)
		return r, err
	}

	c.req.ParsedAmount = amount
	c.req.Validation = ""
	c.req.Err = ""
	c.req.TxHash = common.Hash{}
	c.req.Status = StatusSubmitting
	c.mu.Unlock()

	c.logger.Info("Submitting allowance",
		"owner", c.owner.Hex(),
		"spender", c.spender.Hex(),
		"amount", amount.String())

	txHash, err := c.approver.Approve(ctx, c.owner, c.spender, new(big.Int).Set(amount))

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil && isTimeout(err) && txHash != (common.Hash{}) {
		c.req.Status = StatusPending
		c.req.TxHash = txHash
		c.req.Err = err.Error()
		c.logger.Warn("Allowance awaiting confirmation", "spender", c.spender.Hex(), "tx", txHash.Hex(), "error", err)
		return c.snapshot(), nil
	}
	if err != nil {
		c.req.Status = StatusRejected
		c.req.Err = err.Error()
		c.logger.Error("Allowance rejected", "spender", c.spender.Hex(), "error", err)
		return c.snapshot(), fmt.Errorf("approve: %w", err)
	}

	c.req.Status = StatusConfirmed
	c.req.TxHash = txHash
	c.logger.Info("Allowance confirmed", "spender", c.spender.Hex(), "tx", txHash.Hex())
	return c.snapshot(), nil
}

// Reset returns to Idle with empty input, as when the modal is reopened.
// A submission in flight is not affected.
func (c *Coordinator) Reset() Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.req.Status != StatusSubmitting {
		c.req = Request{Status: StatusIdle}
	}
	return c.snapshot()
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func validationMessage(err error) string {
	var perr *units.ParseError
	if errors.As(err, &perr) {
		return "Enter a valid amount: " + perr.Reason
	}
	if errors.Is(err, units.ErrConversionOverflow) {
		return "Amount is too large"
	}
	return "Enter a valid amount"
}
