// Package instruction decodes the externally produced router calldata that
// describes one swap. Only the fields the adapter validates are lifted into
// typed form; the calldata itself is kept verbatim and forwarded opaquely.
package instruction

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrShortCalldata   = errors.New("calldata shorter than a selector")
	ErrUnknownSelector = errors.New("unknown router selector")
	ErrBadArguments    = errors.New("cannot unpack router arguments")
	ErrZeroAmount      = errors.New("source amount is zero")
	ErrZeroToken       = errors.New("source token is the zero address")
)

// Description mirrors the router's SwapDescription tuple
type Description struct {
	SrcToken        common.Address
	DstToken        common.Address
	SrcReceiver     common.Address
	DstReceiver     common.Address
	Amount          *big.Int
	MinReturnAmount *big.Int
	Flags           *big.Int
	Permit          []byte
}

// Instruction is the decoded view of one swap call
type Instruction struct {
	Method   string
	Selector [4]byte

	// Executor is the caller argument of swap(); zero for unoswap.
	Executor    common.Address
	SrcToken    common.Address
	DstToken    common.Address // zero when the route implies it (unoswap)
	SrcReceiver common.Address
	DstReceiver common.Address
	Amount      *big.Int
	MinReturn   *big.Int
	Flags       *big.Int
	Permit      []byte
	Data        []byte
	Pools       []Pool

	Raw []byte
}

// DeclaresDstToken reports whether the calldata carries a destination token
// field. swap() always does, even when it is the zero address.
func (in *Instruction) DeclaresDstToken() bool {
	return in.Method == MethodSwap
}

// Decode parses router calldata. The returned Instruction keeps a copy of
// the input in Raw.
func Decode(calldata []byte) (*Instruction, error) {
	if len(calldata) < 4 {
		return nil, ErrShortCalldata
	}

	method, err := routerABI.MethodById(calldata[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSelector, hexutil.Encode(calldata[:4]))
	}

	args, err := method.Inputs.Unpack(calldata[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadArguments, method.Name, err)
	}

	in := &Instruction{
		Method: method.Name,
		Raw:    bytes.Clone(calldata),
	}
	copy(in.Selector[:], calldata[:4])

	switch method.Name {
	case MethodSwap:
		err = in.fromSwap(args)
	case MethodUnoswap:
		err = in.fromUnoswap(args)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownSelector, method.Name)
	}
	if err != nil {
		return nil, err
	}

	if in.SrcToken == (common.Address{}) {
		return nil, ErrZeroToken
	}
	if in.Amount == nil || in.Amount.Sign() == 0 {
		return nil, ErrZeroAmount
	}
	if in.MinReturn == nil {
		in.MinReturn = new(big.Int)
	}
	return in, nil
}

func (in *Instruction) fromSwap(args []interface{}) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: swap takes 3 arguments, got %d", ErrBadArguments, len(args))
	}
	executor, ok := args[0].(common.Address)
	if !ok {
		return fmt.Errorf("%w: caller is %T", ErrBadArguments, args[0])
	}
	desc, ok := abi.ConvertType(args[1], new(Description)).(*Description)
	if !ok {
		return fmt.Errorf("%w: desc is %T", ErrBadArguments, args[1])
	}
	data, ok := args[2].([]byte)
	if !ok {
		return fmt.Errorf("%w: data is %T", ErrBadArguments, args[2])
	}

	in.Executor = executor
	in.SrcToken = desc.SrcToken
	in.DstToken = desc.DstToken
	in.SrcReceiver = desc.SrcReceiver
	in.DstReceiver = desc.DstReceiver
	in.Amount = desc.Amount
	in.MinReturn = desc.MinReturnAmount
	in.Flags = desc.Flags
	in.Permit = desc.Permit
	in.Data = data
	return nil
}

func (in *Instruction) fromUnoswap(args []interface{}) error {
	if len(args) != 4 {
		return fmt.Errorf("%w: unoswap takes 4 arguments, got %d", ErrBadArguments, len(args))
	}
	src, ok := args[0].(common.Address)
	if !ok {
		return fmt.Errorf("%w: srcToken is %T", ErrBadArguments, args[0])
	}
	amount, ok := args[1].(*big.Int)
	if !ok {
		return fmt.Errorf("%w: amount is %T", ErrBadArguments, args[1])
	}
	minReturn, ok := args[2].(*big.Int)
	if !ok {
		return fmt.Errorf("%w: minReturn is %T", ErrBadArguments, args[2])
	}
	pools, ok := args[3].([][32]byte)
	if !ok {
		return fmt.Errorf("%w: pools is %T", ErrBadArguments, args[3])
	}

	in.SrcToken = src
	in.Amount = amount
	in.MinReturn = minReturn
	in.Pools = make([]Pool, len(pools))
	for i, p := range pools {
		in.Pools[i] = Pool(p)
	}
	return nil
}

// EncodeSwap builds swap(caller, desc, data) calldata
func EncodeSwap(executor common.Address, desc Description, data []byte) ([]byte, error) {
	if desc.Flags == nil {
		desc.Flags = new(big.Int)
	}
	if desc.Permit == nil {
		desc.Permit = []byte{}
	}
	if data == nil {
		data = []byte{}
	}
	out, err := routerABI.Pack(MethodSwap, executor, desc, data)
	if err != nil {
		return nil, fmt.Errorf("failed to pack swap: %w", err)
	}
	return out, nil
}

// EncodeUnoswap builds unoswap(srcToken, amount, minReturn, pools) calldata
func EncodeUnoswap(src common.Address, amount, minReturn *big.Int, pools []Pool) ([]byte, error) {
	raw := make([][32]byte, len(pools))
	for i, p := range pools {
		raw[i] = p
	}
	out, err := routerABI.Pack(MethodUnoswap, src, amount, minReturn, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to pack unoswap: %w", err)
	}
	return out, nil
}

// ParseHex decodes 0x-prefixed (or bare) hex calldata
func ParseHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid calldata hex: %w", err)
	}
	return b, nil
}
