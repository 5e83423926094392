package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mr-tron/base58"
)

type Family string

const (
	FamilyEVM    Family = "evm"
	FamilySolana Family = "solana"
)

// Well-known chain ids of the order protocol.
const (
	Ethereum  model.ChainID = 1
	BNB       model.ChainID = 56
	Polygon   model.ChainID = 137
	Arbitrum  model.ChainID = 42161
	Avalanche model.ChainID = 43114
	Base      model.ChainID = 8453
	Solana    model.ChainID = 7565164
)

var (
	ErrUnsupportedChain = errors.New("unsupported chain")
	ErrInvalidAddress   = errors.New("invalid address")
)

// Codec converts between human-readable addresses and the chain-native byte
// encoding used everywhere else. All address comparisons in the system go
// through bytes produced here.
type Codec struct {
	families map[model.ChainID]Family
}

func NewCodec(overrides map[model.ChainID]Family) *Codec {
	families := map[model.ChainID]Family{
		Solana: FamilySolana,
	}
	for id, f := range overrides {
		families[id] = f
	}
	return &Codec{families: families}
}

func (c *Codec) Family(chainID model.ChainID) Family {
	if f, ok := c.families[chainID]; ok {
		return f
	}
	return FamilyEVM
}

// EncodeAddress parses a human-readable address for chainID. EVM addresses
// are case-insensitive hex and decode to 20 bytes; Solana addresses are
// base58 and decode to 32 bytes.
func (c *Codec) EncodeAddress(chainID model.ChainID, addr string) ([]byte, error) {
	addr = strings.TrimSpace(addr)
	switch c.Family(chainID) {
	case FamilyEVM:
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("%w: %q is not an evm address (chain %d)", ErrInvalidAddress, addr, chainID)
		}
		return common.HexToAddress(addr).Bytes(), nil
	case FamilySolana:
		b, err := base58.Decode(addr)
		if err != nil || len(b) != 32 {
			return nil, fmt.Errorf("%w: %q is not a solana address (chain %d)", ErrInvalidAddress, addr, chainID)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedChain, chainID)
	}
}

// FormatAddress renders chain-native bytes for logs and API responses.
func (c *Codec) FormatAddress(chainID model.ChainID, b []byte) string {
	if len(b) == 0 {
		return ""
	}
	switch c.Family(chainID) {
	case FamilySolana:
		return base58.Encode(b)
	default:
		return common.BytesToAddress(b).Hex()
	}
}

// DecodeOrder converts a wire payload into an Order, encoding every address
// with the encoding of the chain it lives on.
func (c *Codec) DecodeOrder(p model.OrderPayload) (*model.Order, error) {
	giveChain := model.ChainID(p.GiveChainID)
	takeChain := model.ChainID(p.TakeChainID)

	id, err := parseOrderID(p.OrderID)
	if err != nil {
		return nil, err
	}
	maker, err := c.EncodeAddress(giveChain, p.Maker)
	if err != nil {
		return nil, fmt.Errorf("maker: %w", err)
	}
	giveToken, err := c.EncodeAddress(giveChain, p.GiveToken)
	if err != nil {
		return nil, fmt.Errorf("give token: %w", err)
	}
	takeToken, err := c.EncodeAddress(takeChain, p.TakeToken)
	if err != nil {
		return nil, fmt.Errorf("take token: %w", err)
	}
	receiver, err := c.EncodeAddress(takeChain, p.Receiver)
	if err != nil {
		return nil, fmt.Errorf("receiver: %w", err)
	}
	var allowedTaker []byte
	if p.AllowedTakerDst != "" {
		allowedTaker, err = c.EncodeAddress(takeChain, p.AllowedTakerDst)
		if err != nil {
			return nil, fmt.Errorf("allowed taker: %w", err)
		}
	}
	giveAmount, err := parseAmount(p.GiveAmount)
	if err != nil {
		return nil, fmt.Errorf("give amount: %w", err)
	}
	takeAmount, err := parseAmount(p.TakeAmount)
	if err != nil {
		return nil, fmt.Errorf("take amount: %w", err)
	}

	return &model.Order{
		ID:              id,
		MakerOrderNonce: p.MakerOrderNonce,
		Maker:           maker,
		Give:            model.TokenAmount{ChainID: giveChain, Token: giveToken, Amount: giveAmount},
		Take:            model.TokenAmount{ChainID: takeChain, Token: takeToken, Amount: takeAmount},
		Receiver:        receiver,
		AllowedTakerDst: allowedTaker,
	}, nil
}

func parseOrderID(raw string) (common.Hash, error) {
	raw = strings.TrimSpace(raw)
	s := strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if len(s) != 64 {
		return common.Hash{}, fmt.Errorf("invalid order id %q", raw)
	}
	b, err := hexutil.Decode("0x" + s)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid order id %q", raw)
	}
	return common.BytesToHash(b), nil
}

func parseAmount(raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return v, nil
}

// NormalizeOrderID returns the canonical 0x-prefixed lowercase form of an
// order id, the form used as the ledger key.
func NormalizeOrderID(raw string) (string, error) {
	id, err := parseOrderID(raw)
	if err != nil {
		return "", err
	}
	return id.Hex(), nil
}
