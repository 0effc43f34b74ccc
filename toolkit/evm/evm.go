// Package evm provides read-only wallet and chain tools for EVM compatible
// networks over JSON-RPC.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/ordo-ai/agentgraph/core"
	"github.com/ordo-ai/agentgraph/tool"
)

// Backend is the subset of ethclient.Client the tools need.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// Options configures the toolkit.
type Options struct {
	// Name labels the network in tool output, e.g. "Ethereum".
	Name string
	// Symbol is the native currency symbol.
	Symbol string
}

// Client wraps a Backend with the chain label.
type Client struct {
	backend Backend
	name    string
	symbol  string
	closeFn func()
	once    sync.Once
}

// Dial connects to rpcURL.
func Dial(ctx context.Context, rpcURL string, optFns ...func(o *Options)) (*Client, error) {
	rpcURL = strings.TrimSpace(rpcURL)
	if rpcURL == "" {
		return nil, errors.New("evm: rpc url is required")
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("evm: dial %s: %w", rpcURL, err)
	}

	eth := ethclient.NewClient(rpcClient)

	c := NewClient(eth, optFns...)
	c.closeFn = eth.Close

	return c, nil
}

// NewClient wraps an existing backend.
func NewClient(backend Backend, optFns ...func(o *Options)) *Client {
	opts := Options{Name: "EVM", Symbol: "ETH"}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Client{backend: backend, name: opts.Name, symbol: opts.Symbol}
}

// Close releases the RPC connection.
func (c *Client) Close() {
	c.once.Do(func() {
		if c.closeFn != nil {
			c.closeFn()
		}
	})
}

// ChainInfo is a lightweight snapshot of the network.
type ChainInfo struct {
	ChainID     *big.Int
	BlockNumber uint64
}

// ChainInfo fetches the chain id and head block.
func (c *Client) ChainInfo(ctx context.Context) (ChainInfo, error) {
	id, err := c.backend.ChainID(ctx)
	if err != nil {
		return ChainInfo{}, fmt.Errorf("chain id: %w", err)
	}

	head, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return ChainInfo{}, fmt.Errorf("block number: %w", err)
	}

	return ChainInfo{ChainID: id, BlockNumber: head}, nil
}

// Balance returns the latest balance of address in wei.
func (c *Client) Balance(ctx context.Context, address string) (*big.Int, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	return c.backend.BalanceAt(ctx, addr, nil)
}

// TransactionCount returns the pending nonce of address.
func (c *Client) TransactionCount(ctx context.Context, address string) (uint64, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return 0, err
	}

	return c.backend.PendingNonceAt(ctx, addr)
}

// FormatEther renders wei with 4 decimals of the native unit.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0.0000"
	}

	f := new(big.Float).SetInt(wei)
	f.Quo(f, big.NewFloat(1e18))

	return f.Text('f', 4)
}

func parseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}

	return common.HexToAddress(s), nil
}

var addressSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"address": map[string]any{"type": "string", "description": "0x-prefixed wallet address"},
	},
	"required": []string{"address"},
}

// Tools returns evm_get_balance, evm_get_transaction_count and evm_chain_info.
func (c *Client) Tools() []tool.Tool {
	balance := tool.NewFunctionTool("evm_get_balance",
		fmt.Sprintf("Get the %s balance of a wallet address on %s", c.symbol, c.name),
		addressSchema,
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			address, _ := args["address"].(string)

			wei, err := c.Balance(tc.Context(), address)
			if err != nil {
				return nil, classify("evm_get_balance", err)
			}

			return fmt.Sprintf("Wallet %s has %s %s", address, FormatEther(wei), c.symbol), nil
		})

	nonce := tool.NewFunctionTool("evm_get_transaction_count",
		"Get the number of transactions sent from a wallet address",
		addressSchema,
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			address, _ := args["address"].(string)

			n, err := c.TransactionCount(tc.Context(), address)
			if err != nil {
				return nil, classify("evm_get_transaction_count", err)
			}

			return fmt.Sprintf("Wallet %s has sent %d transactions", address, n), nil
		})

	info := tool.NewFunctionTool("evm_chain_info",
		fmt.Sprintf("Get the chain id and latest block number of %s", c.name),
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(tc *core.ToolContext, _ map[string]any) (any, error) {
			ci, err := c.ChainInfo(tc.Context())
			if err != nil {
				return nil, classify("evm_chain_info", err)
			}

			return fmt.Sprintf("%s chain id %s, latest block %d", c.name, ci.ChainID.String(), ci.BlockNumber), nil
		})

	return []tool.Tool{balance, nonce, info}
}

func classify(name string, err error) error {
	if strings.HasPrefix(err.Error(), "invalid address") {
		return tool.NewToolError(name, err.Error(), tool.CodeValidation)
	}

	return tool.NewToolError(name, err.Error(), tool.CodeUpstream)
}
