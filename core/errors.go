package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrReverted          = errors.New("execution reverted")
	ErrInvalidSignature  = errors.New("invalid transaction signature")
	ErrNonceTooLow       = errors.New("nonce too low")
	ErrNonceTooHigh      = errors.New("nonce too high")
	ErrInsufficientFunds = errors.New("insufficient funds for value transfer")
	ErrUnknownCode       = errors.New("unknown contract code")
	ErrNotContract       = errors.New("target is not a contract")
	ErrWriteProtection   = errors.New("state modification in read-only call")
)

// RevertError 是合约主动拒绝执行的结果，携带拒绝原因
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return ErrReverted.Error()
	}
	return fmt.Sprintf("%s: %s", ErrReverted, e.Reason)
}

func (e *RevertError) Is(target error) bool {
	return target == ErrReverted
}

// Revert 返回一个携带原因的 RevertError
func Revert(reason string) error {
	return &RevertError{Reason: reason}
}

// RevertReason 提取错误链中的拒绝原因，不是 revert 时返回 false
func RevertReason(err error) (string, bool) {
	var re *RevertError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}
