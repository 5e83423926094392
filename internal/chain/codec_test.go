package chain

import (
	"math/big"
	"strings"
	"testing"

	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usdc    = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	weth    = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	orderID = "0x00000000000000000000000000000000000000000000000000000000000000ab"
)

func solanaKey(seed byte) string {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = seed + byte(i)
	}
	return base58.Encode(raw)
}

func TestCodec_Families(t *testing.T) {
	c := NewCodec(map[model.ChainID]Family{100000: FamilySolana})
	assert.Equal(t, FamilyEVM, c.Family(Ethereum))
	assert.Equal(t, FamilyEVM, c.Family(999))
	assert.Equal(t, FamilySolana, c.Family(Solana))
	assert.Equal(t, FamilySolana, c.Family(100000))
}

func TestCodec_EncodeEVMIsCaseInsensitive(t *testing.T) {
	c := NewCodec(nil)
	a, err := c.EncodeAddress(Ethereum, usdc)
	require.NoError(t, err)
	b, err := c.EncodeAddress(Ethereum, strings.ToLower(usdc))
	require.NoError(t, err)
	assert.Len(t, a, 20)
	assert.Equal(t, a, b)
	assert.Equal(t, usdc, c.FormatAddress(Ethereum, a))

	_, err = c.EncodeAddress(Ethereum, "0x1234")
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = c.EncodeAddress(Ethereum, solanaKey(1))
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestCodec_EncodeSolana(t *testing.T) {
	c := NewCodec(nil)
	key := solanaKey(1)
	b, err := c.EncodeAddress(Solana, key)
	require.NoError(t, err)
	assert.Len(t, b, 32)
	assert.Equal(t, key, c.FormatAddress(Solana, b))

	_, err = c.EncodeAddress(Solana, usdc)
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = c.EncodeAddress(Solana, base58.Encode([]byte{1, 2, 3}))
	assert.ErrorIs(t, err, ErrInvalidAddress)

	assert.Equal(t, "", c.FormatAddress(Solana, nil))
}

func TestCodec_UnknownFamily(t *testing.T) {
	c := NewCodec(map[model.ChainID]Family{5: "cosmos"})
	_, err := c.EncodeAddress(5, usdc)
	assert.ErrorIs(t, err, ErrUnsupportedChain)
}

func validPayload() model.OrderPayload {
	return model.OrderPayload{
		OrderID:         orderID,
		MakerOrderNonce: 3,
		Maker:           "0x1111111111111111111111111111111111111111",
		GiveChainID:     uint64(Ethereum),
		GiveToken:       usdc,
		GiveAmount:      "1000000000",
		TakeChainID:     uint64(Solana),
		TakeToken:       solanaKey(1),
		TakeAmount:      "5000",
		Receiver:        solanaKey(50),
	}
}

func TestCodec_DecodeOrderUsesEachSidesEncoding(t *testing.T) {
	c := NewCodec(nil)
	order, err := c.DecodeOrder(validPayload())
	require.NoError(t, err)

	assert.Equal(t, orderID, order.ID.Hex())
	assert.Equal(t, uint64(3), order.MakerOrderNonce)
	assert.Len(t, order.Maker, 20)
	assert.Len(t, order.Give.Token, 20)
	assert.Len(t, order.Take.Token, 32)
	assert.Len(t, order.Receiver, 32)
	assert.Nil(t, order.AllowedTakerDst)
	assert.Equal(t, 0, order.Give.Amount.Cmp(big.NewInt(1_000_000_000)))
	assert.Equal(t, Solana, order.Take.ChainID)
}

func TestCodec_DecodeOrderRejectsBadFields(t *testing.T) {
	c := NewCodec(nil)
	cases := map[string]func(p *model.OrderPayload){
		"short id":          func(p *model.OrderPayload) { p.OrderID = "0xabc" },
		"non hex id":        func(p *model.OrderPayload) { p.OrderID = "0x" + strings.Repeat("zz", 32) },
		"maker":             func(p *model.OrderPayload) { p.Maker = solanaKey(2) },
		"take token":        func(p *model.OrderPayload) { p.TakeToken = weth },
		"allowed taker":     func(p *model.OrderPayload) { p.AllowedTakerDst = "nope" },
		"negative amount":   func(p *model.OrderPayload) { p.GiveAmount = "-1" },
		"fractional amount": func(p *model.OrderPayload) { p.TakeAmount = "1.5" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := validPayload()
			mutate(&p)
			_, err := c.DecodeOrder(p)
			assert.Error(t, err)
		})
	}
}

func TestNormalizeOrderID(t *testing.T) {
	upper := "0X" + strings.ToUpper(orderID[2:])
	id, err := NormalizeOrderID(upper)
	require.NoError(t, err)
	assert.Equal(t, orderID, id)

	id, err = NormalizeOrderID(" " + orderID[2:])
	require.NoError(t, err)
	assert.Equal(t, orderID, id)

	_, err = NormalizeOrderID("order-1")
	assert.Error(t, err)
}
