package blockchain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"payable":false,"stateMutability":"nonpayable","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"}
]`

// call invokes a view method on token with retry and failover.
func (c *Client) call(ctx context.Context, token common.Address, method string, args ...any) ([]any, error) {
	rpcCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	var out []any
	err := c.retryWithBackoff(rpcCtx, func(client *ethclient.Client) error {
		contract := bind.NewBoundContract(token, c.parsedABI, client, client, client)
		out = nil
		return contract.Call(&bind.CallOpts{Context: rpcCtx}, &out, method, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty result", method)
	}
	return out, nil
}

// BalanceOf returns the token balance of wallet in base units.
func (c *Client) BalanceOf(ctx context.Context, token, wallet common.Address) (*big.Int, error) {
	out, err := c.call(ctx, token, "balanceOf", wallet)
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf: unexpected result type %T", out[0])
	}
	return balance, nil
}

// Allowance returns how many base units spender may still move for owner.
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	out, err := c.call(ctx, token, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	allowance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("allowance: unexpected result type %T", out[0])
	}
	return allowance, nil
}

// TokenDecimals reads decimals() from token, falling back when the call fails.
func (c *Client) TokenDecimals(ctx context.Context, token common.Address, fallback uint8) uint8 {
	out, err := c.call(ctx, token, "decimals")
	if err != nil {
		slog.Warn("Could not read token decimals, using fallback",
			"token", token.Hex(), "fallback", fallback, "error", err)
		return fallback
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return fallback
	}
	return decimals
}

// Symbol reads symbol() from token.
func (c *Client) Symbol(ctx context.Context, token common.Address) (string, error) {
	out, err := c.call(ctx, token, "symbol")
	if err != nil {
		return "", err
	}
	symbol, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("symbol: unexpected result type %T", out[0])
	}
	return symbol, nil
}
