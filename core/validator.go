package core

import (
	"fmt"

	"github.com/virtue186/fortesting/types"
)

type Validator interface {
	ValidateBlock(*Block) error
}

// BlockValidator 检查区块能否接在当前链头之后。
// 交易能否执行由 AddBlock 在状态上试运行时判断。
type BlockValidator struct {
	bc *BlockChain
}

func NewBlockValidator(bc *BlockChain) *BlockValidator {
	return &BlockValidator{bc: bc}
}

// ValidateBlock 在 bc.lock 持有期间被调用，只能使用不加锁的内部方法
func (v BlockValidator) ValidateBlock(b *Block) error {
	if b.Header == nil {
		return fmt.Errorf("block has no header")
	}
	head := v.bc.height()
	if b.Height <= head {
		return fmt.Errorf("block %d already exists with hash (%s)", b.Height, v.bc.header(b.Height).hash())
	}
	if b.Height != head+1 {
		return fmt.Errorf("block %d does not belong to height %d", b.Height, head+1)
	}

	parent := v.bc.header(head)
	if parent.hash() != b.PrevBlockHash {
		return fmt.Errorf("the hash of the previous block (%s) is invalid", b.PrevBlockHash)
	}
	if b.Version != parent.Version {
		return fmt.Errorf("block version %d, chain version %d", b.Version, parent.Version)
	}
	if b.Timestamp <= parent.Timestamp {
		return fmt.Errorf("block timestamp %d is not after parent %d", b.Timestamp, parent.Timestamp)
	}

	seen := make(map[types.Hash]struct{}, len(b.Transactions))
	for _, tx := range b.Transactions {
		h := tx.Hash(TxHasher{})
		if _, dup := seen[h]; dup {
			return fmt.Errorf("transaction %s included twice", h)
		}
		seen[h] = struct{}{}
	}

	return b.Verify()
}
