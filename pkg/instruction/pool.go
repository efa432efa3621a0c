package instruction

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Pool is one packed unoswap hop: flag bits in the top byte, the fee
// numerator in bits 160..191 and the pair address in the low 20 bytes.
type Pool [32]byte

const (
	poolReverseBit = 255
	poolWethBit    = 254
)

// Address returns the pair contract of the hop
func (p Pool) Address() common.Address {
	return common.BytesToAddress(p[12:])
}

// Numerator is the pair fee numerator (997000000 for a 0.3% pair)
func (p Pool) Numerator() uint32 {
	return uint32(p[8])<<24 | uint32(p[9])<<16 | uint32(p[10])<<8 | uint32(p[11])
}

// Reversed reports whether the hop swaps token1 for token0
func (p Pool) Reversed() bool {
	return new(big.Int).SetBytes(p[:]).Bit(poolReverseBit) == 1
}

// UnwrapWeth reports whether the hop unwraps WETH at the end of the route
func (p Pool) UnwrapWeth() bool {
	return new(big.Int).SetBytes(p[:]).Bit(poolWethBit) == 1
}

// NewPool packs a pair address with the hop flags
func NewPool(pair common.Address, reversed, unwrapWeth bool) Pool {
	v := new(big.Int).SetBytes(pair.Bytes())
	if reversed {
		v.SetBit(v, poolReverseBit, 1)
	}
	if unwrapWeth {
		v.SetBit(v, poolWethBit, 1)
	}
	var p Pool
	v.FillBytes(p[:])
	return p
}
