package contracts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

// ErrReverted marks a read that reached the contract and failed there: an
// explicit revert, an empty return from a non-contract, or an undecodable
// result. Callers treat it as "value unavailable" and fall back.
var ErrReverted = errors.New("contract read reverted")

// ReadError describes a failed contract read.
type ReadError struct {
	Method  string
	Address string
	Block   uint64
	Err     error
}

func (e *ReadError) Error() string {
	if e.Block > 0 {
		return fmt.Sprintf("read %s on %s at block %d: %v", e.Method, e.Address, e.Block, e.Err)
	}
	return fmt.Sprintf("read %s on %s: %v", e.Method, e.Address, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// IsReverted reports whether err is a contract-level failure. Anything else
// coming out of a read is a transport failure.
func IsReverted(err error) bool {
	return errors.Is(err, ErrReverted)
}

func classifyCallError(err error) error {
	if isRevert(err) {
		return fmt.Errorf("%w: %w", ErrReverted, err)
	}
	return err
}

func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return strings.Contains(msg, "revert") || strings.Contains(msg, "invalid opcode") || strings.Contains(msg, "out of gas")
	}
	return strings.Contains(msg, "execution reverted")
}
