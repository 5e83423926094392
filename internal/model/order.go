package model

import (
	"encoding/binary"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ChainID is the numeric chain identifier used by the order protocol.
type ChainID uint64

func (c ChainID) String() string {
	return strconv.FormatUint(uint64(c), 10)
}

// OrderStatus mirrors the give-side order state stored by the source contract.
type OrderStatus uint8

const (
	OrderStatusNotSet OrderStatus = iota
	OrderStatusCreated
	OrderStatusClaimedUnlock
	OrderStatusClaimedCancel
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusCreated:
		return "created"
	case OrderStatusClaimedUnlock:
		return "claimed_unlock"
	case OrderStatusClaimedCancel:
		return "claimed_cancel"
	default:
		return "not_set"
	}
}

// TokenAmount is one side of an order. Token is the chain-native address
// encoding of the token on ChainID.
type TokenAmount struct {
	ChainID ChainID
	Token   []byte
	Amount  *big.Int
}

// Order is a cross-chain swap as observed by the feed. It is never mutated
// after construction.
type Order struct {
	// ID is the identifier reported by the feed; CalculateID recomputes it.
	ID              common.Hash
	MakerOrderNonce uint64
	Maker           []byte
	Give            TokenAmount
	Take            TokenAmount
	Receiver        []byte
	AllowedTakerDst []byte
}

// CalculateID derives the canonical order identifier from the order fields.
// Variable-length fields are length-prefixed so distinct orders never share
// an encoding.
func (o *Order) CalculateID() common.Hash {
	buf := make([]byte, 0, 256)
	buf = binary.BigEndian.AppendUint64(buf, o.MakerOrderNonce)
	buf = appendBytes(buf, o.Maker)
	buf = appendTokenAmount(buf, o.Give)
	buf = appendTokenAmount(buf, o.Take)
	buf = appendBytes(buf, o.Receiver)
	buf = appendBytes(buf, o.AllowedTakerDst)
	return crypto.Keccak256Hash(buf)
}

func appendTokenAmount(buf []byte, ta TokenAmount) []byte {
	buf = append(buf, common.LeftPadBytes(new(big.Int).SetUint64(uint64(ta.ChainID)).Bytes(), 32)...)
	buf = appendBytes(buf, ta.Token)
	amount := ta.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	return append(buf, common.LeftPadBytes(amount.Bytes(), 32)...)
}

func appendBytes(buf, b []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

// Candidate is an order offered for admission together with its finality.
// Unconfirmed orders carry exposure and must reserve budget.
type Candidate struct {
	Order     *Order
	Confirmed bool
}

// OrderPayload is the wire form of an order used by the feed and the HTTP
// API. Addresses are human-readable strings in each chain's native format.
type OrderPayload struct {
	OrderID         string `json:"order_id" binding:"required"`
	MakerOrderNonce uint64 `json:"maker_order_nonce"`
	Maker           string `json:"maker" binding:"required"`
	GiveChainID     uint64 `json:"give_chain_id" binding:"required"`
	GiveToken       string `json:"give_token" binding:"required"`
	GiveAmount      string `json:"give_amount" binding:"required"`
	TakeChainID     uint64 `json:"take_chain_id" binding:"required"`
	TakeToken       string `json:"take_token" binding:"required"`
	TakeAmount      string `json:"take_amount" binding:"required"`
	Receiver        string `json:"receiver" binding:"required"`
	AllowedTakerDst string `json:"allowed_taker_dst,omitempty"`
	Confirmed       bool   `json:"confirmed"`
}
