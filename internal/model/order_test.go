package model

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleOrder() *Order {
	return &Order{
		MakerOrderNonce: 1,
		Maker:           []byte{0x11, 0x22},
		Give:            TokenAmount{ChainID: 1, Token: []byte{0xaa}, Amount: big.NewInt(100)},
		Take:            TokenAmount{ChainID: 137, Token: []byte{0xbb}, Amount: big.NewInt(99)},
		Receiver:        []byte{0x33},
	}
}

func TestCalculateID_Deterministic(t *testing.T) {
	assert.Equal(t, sampleOrder().CalculateID(), sampleOrder().CalculateID())
}

func TestCalculateID_EveryFieldCounts(t *testing.T) {
	base := sampleOrder().CalculateID()
	mutations := map[string]func(o *Order){
		"nonce":         func(o *Order) { o.MakerOrderNonce = 2 },
		"maker":         func(o *Order) { o.Maker = []byte{0x11, 0x23} },
		"give chain":    func(o *Order) { o.Give.ChainID = 56 },
		"give amount":   func(o *Order) { o.Give.Amount = big.NewInt(101) },
		"take token":    func(o *Order) { o.Take.Token = []byte{0xbc} },
		"receiver":      func(o *Order) { o.Receiver = []byte{0x34} },
		"allowed taker": func(o *Order) { o.AllowedTakerDst = []byte{0x01} },
		// moving a byte across a field boundary must change the id
		"field boundary": func(o *Order) {
			o.Maker = []byte{0x11}
			o.Give.Token = []byte{0x22, 0xaa}
		},
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			o := sampleOrder()
			mutate(o)
			assert.NotEqual(t, base, o.CalculateID())
		})
	}
}

func TestCalculateID_NilAmountIsZero(t *testing.T) {
	a := sampleOrder()
	a.Give.Amount = nil
	b := sampleOrder()
	b.Give.Amount = new(big.Int)
	assert.Equal(t, a.CalculateID(), b.CalculateID())
}

func TestOrderStatusString(t *testing.T) {
	assert.Equal(t, "created", OrderStatusCreated.String())
	assert.Equal(t, "claimed_cancel", OrderStatusClaimedCancel.String())
	assert.Equal(t, "not_set", OrderStatus(42).String())
	assert.Equal(t, "42161", ChainID(42161).String())
}
