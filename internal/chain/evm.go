package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const sourceABIJSON = `[
	{"inputs":[{"name":"orderId","type":"bytes32"}],"name":"giveOrderStatus","outputs":[{"name":"status","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

var sourceABI = mustParseABI(sourceABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("chain: parse abi: %v", err))
	}
	return parsed
}

// EVMConnection queries an EVM chain over JSON-RPC. The client is dialed
// lazily; every call gets its own timeout and is retried with a linear
// backoff. Token decimals never change and are cached forever.
type EVMConnection struct {
	chainID        model.ChainID
	rpcURL         string
	sourceContract common.Address
	timeout        time.Duration
	retries        int

	mu       sync.Mutex
	client   *ethclient.Client
	decimals map[common.Address]uint8
}

func NewEVMConnection(chainID model.ChainID, rpcURL, sourceContract string, timeout time.Duration, retries int) (*EVMConnection, error) {
	rpcURL = strings.TrimSpace(rpcURL)
	if rpcURL == "" {
		return nil, fmt.Errorf("chain %d: rpc url not configured", chainID)
	}
	if sourceContract != "" && !common.IsHexAddress(sourceContract) {
		return nil, fmt.Errorf("chain %d: %w: source contract %q", chainID, ErrInvalidAddress, sourceContract)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	return &EVMConnection{
		chainID:        chainID,
		rpcURL:         rpcURL,
		sourceContract: common.HexToAddress(sourceContract),
		timeout:        timeout,
		retries:        retries,
		decimals:       make(map[common.Address]uint8),
	}, nil
}

// GiveOrderStatus reads the give-side state of an order from the source
// contract.
func (c *EVMConnection) GiveOrderStatus(ctx context.Context, orderID common.Hash) (model.OrderStatus, error) {
	if c.sourceContract == (common.Address{}) {
		return model.OrderStatusNotSet, fmt.Errorf("chain %d: source contract not configured", c.chainID)
	}
	data, err := sourceABI.Pack("giveOrderStatus", orderID)
	if err != nil {
		return model.OrderStatusNotSet, fmt.Errorf("failed to pack call data: %w", err)
	}
	out, err := c.call(ctx, c.sourceContract, data)
	if err != nil {
		return model.OrderStatusNotSet, err
	}
	values, err := sourceABI.Unpack("giveOrderStatus", out)
	if err != nil || len(values) != 1 {
		return model.OrderStatusNotSet, fmt.Errorf("chain %d: unexpected giveOrderStatus output", c.chainID)
	}
	status, ok := values[0].(uint8)
	if !ok {
		return model.OrderStatusNotSet, fmt.Errorf("chain %d: unexpected giveOrderStatus type %T", c.chainID, values[0])
	}
	return model.OrderStatus(status), nil
}

// TokenDecimals calls decimals() on an ERC-20 token.
func (c *EVMConnection) TokenDecimals(ctx context.Context, token []byte) (uint8, error) {
	if len(token) != common.AddressLength {
		return 0, fmt.Errorf("chain %d: %w: token length %d", c.chainID, ErrInvalidAddress, len(token))
	}
	addr := common.BytesToAddress(token)

	c.mu.Lock()
	cached, ok := c.decimals[addr]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	data, err := sourceABI.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("failed to pack call data: %w", err)
	}
	out, err := c.call(ctx, addr, data)
	if err != nil {
		return 0, err
	}
	values, err := sourceABI.Unpack("decimals", out)
	if err != nil || len(values) != 1 {
		return 0, fmt.Errorf("chain %d: token %s: unexpected decimals output", c.chainID, addr.Hex())
	}
	dec, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("chain %d: token %s: unexpected decimals type %T", c.chainID, addr.Hex(), values[0])
	}

	c.mu.Lock()
	c.decimals[addr] = dec
	c.mu.Unlock()
	return dec, nil
}

func (c *EVMConnection) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		client, err := c.getClient(attemptCtx)
		if err != nil {
			cancel()
			lastErr = err
			if !shouldRetry(ctx, attempt, c.retries) {
				break
			}
			continue
		}

		msg := ethereum.CallMsg{
			To:   &to,
			Data: data,
		}
		output, err := client.CallContract(attemptCtx, msg, nil)
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("chain %d: rpc call failed: %w", c.chainID, err)
			if !shouldRetry(ctx, attempt, c.retries) {
				break
			}
			continue
		}
		return output, nil
	}
	return nil, lastErr
}

func (c *EVMConnection) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain %d: failed to connect rpc: %w", c.chainID, err)
	}
	c.client = client
	return c.client, nil
}

func (c *EVMConnection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
}

func shouldRetry(ctx context.Context, attempt, max int) bool {
	if attempt >= max {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(time.Duration(attempt+1) * 200 * time.Millisecond):
		return true
	}
}
