package blockchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const defaultReceiptTimeout = 3 * time.Minute

var (
	// ErrOwnerMismatch is returned when the signing key does not belong to the
	// session user.
	ErrOwnerMismatch = errors.New("signing key does not match owner address")

	// ErrTransactionReverted is returned when the approve transaction was mined
	// but failed.
	ErrTransactionReverted = errors.New("approve transaction reverted")

	// ErrReceiptTimeout is returned when the approve transaction was sent but
	// its receipt did not arrive in time. The transaction may still be mined.
	ErrReceiptTimeout = errors.New("approve transaction not mined yet")
)

// ReceiptTimeoutError reports a sent transaction whose receipt wait ended.
// It matches ErrReceiptTimeout and reports Timeout() == true.
type ReceiptTimeoutError struct {
	TxHash common.Hash
	Err    error
}

func (e *ReceiptTimeoutError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrReceiptTimeout, e.TxHash.Hex(), e.Err)
}

func (e *ReceiptTimeoutError) Unwrap() []error { return []error{ErrReceiptTimeout, e.Err} }

func (e *ReceiptTimeoutError) Timeout() bool { return true }

// Approver submits ERC-20 approve transactions signed with a local key.
// It never retries: gas estimation and nonce handling are left to the bind
// package, and a failed submission is reported to the caller as is.
type Approver struct {
	client         *Client
	token          common.Address
	key            *ecdsa.PrivateKey
	from           common.Address
	receiptTimeout time.Duration
}

// NewApprover parses a hex private key (with or without 0x) for token.
func NewApprover(client *Client, token common.Address, privateKeyHex string, receiptTimeout time.Duration) (*Approver, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	if receiptTimeout <= 0 {
		receiptTimeout = defaultReceiptTimeout
	}
	return &Approver{
		client:         client,
		token:          token,
		key:            key,
		from:           crypto.PubkeyToAddress(key.PublicKey),
		receiptTimeout: receiptTimeout,
	}, nil
}

// From returns the address of the signing key.
func (a *Approver) From() common.Address {
	return a.from
}

// Approve sends approve(spender, amount) from owner and waits for the receipt.
func (a *Approver) Approve(ctx context.Context, owner, spender common.Address, amount *big.Int) (common.Hash, error) {
	if owner != a.from {
		return common.Hash{}, fmt.Errorf("%w: key is %s, owner is %s", ErrOwnerMismatch, a.from.Hex(), owner.Hex())
	}
	if amount == nil || amount.Sign() < 0 {
		return common.Hash{}, errors.New("amount must be a non-negative integer")
	}

	ethClient, url, err := a.client.GetHealthyEndpoint()
	if err != nil {
		return common.Hash{}, err
	}

	chainID, err := ethClient.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain id: %w", err)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(a.key, chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("transactor: %w", err)
	}
	opts.Context = ctx

	contract := bind.NewBoundContract(a.token, a.client.parsedABI, ethClient, ethClient, ethClient)
	tx, err := contract.Transact(opts, "approve", spender, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("send approve: %w", err)
	}

	slog.Info("Approve transaction sent",
		"tx", tx.Hash().Hex(),
		"token", a.token.Hex(),
		"spender", spender.Hex(),
		"endpoint", url)

	waitCtx, cancel := context.WithTimeout(ctx, a.receiptTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, ethClient, tx)
	if err != nil {
		return tx.Hash(), &ReceiptTimeoutError{TxHash: tx.Hash(), Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash(), fmt.Errorf("%w: %s", ErrTransactionReverted, tx.Hash().Hex())
	}
	return tx.Hash(), nil
}
