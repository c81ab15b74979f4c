package solana

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/ybbus/jsonrpc"
)

// CustomError is the numerical error returned by a non-system program.
type CustomError uint32

func (c CustomError) Error() string {
	return fmt.Sprintf("custom program error: %#x", uint32(c))
}

// InstructionError indicates an instruction returned an error during
// transaction processing. Index identifies the failing instruction within
// the submitted batch.
type InstructionError struct {
	Index int
	Err   error
}

func (i InstructionError) Error() string {
	return fmt.Sprintf("error processing instruction %d: %v", i.Index, i.Err)
}

func (i InstructionError) Unwrap() error {
	return i.Err
}

// CustomError returns the program-defined error code, if any.
func (i InstructionError) CustomError() *CustomError {
	ce, ok := i.Err.(CustomError)
	if ok {
		return &ce
	}

	return nil
}

// parseRPCError extracts an instruction-level error from a sendTransaction
// RPC failure, when one is present. The RPC surfaces the failing instruction
// as {"InstructionError": [index, {"Custom": code} | "Name"]}.
func parseRPCError(rpcErr *jsonrpc.RPCError) error {
	data, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return rpcErr
	}

	raw, ok := data["err"]
	if !ok || raw == nil {
		return rpcErr
	}

	wrapped, ok := raw.(map[string]interface{})
	if !ok {
		return errors.Errorf("transaction failed: %v", raw)
	}

	tuple, ok := wrapped["InstructionError"].([]interface{})
	if !ok || len(tuple) != 2 {
		return errors.Errorf("transaction failed: %v", raw)
	}

	index, ok := tuple[0].(float64)
	if !ok {
		return errors.Errorf("transaction failed: %v", raw)
	}

	switch detail := tuple[1].(type) {
	case string:
		return InstructionError{Index: int(index), Err: errors.New(detail)}
	case map[string]interface{}:
		if code, ok := detail["Custom"].(float64); ok {
			return InstructionError{Index: int(index), Err: CustomError(uint32(code))}
		}
	}

	return errors.Errorf("transaction failed: %v", raw)
}
