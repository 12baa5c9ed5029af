package core

import (
	"strconv"

	"github.com/virtue186/fortesting/types"
)

// Storage 是链的持久层。读取直接进行，写入全部经过 Batch，
// 一个区块的区块体、高度索引、回执和状态变更在同一次 Write 中落盘
type Storage interface {
	// 键不存在时返回 ErrNotFound
	Get(key []byte) ([]byte, error)
	NewBatch() Batch
	Write(Batch) error
	Close() error
}

type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Len() int
}

const (
	blockHeightPrefix = "h"
	blockPrefix       = "b"
	receiptPrefix     = "r"
	accountPrefix     = "a"
	slotPrefix        = "s"
)

var (
	blockHeightPrefixB = []byte(blockHeightPrefix) // []byte{'h'}
	blockPrefixB       = []byte(blockPrefix)       // []byte{'b'}
)

func blockHeightKey(height uint32) []byte {
	// 字节前缀 + 最多 10 位 uint32 十进制数
	b := make([]byte, 0, 1+10)
	b = append(b, blockHeightPrefixB...)
	b = strconv.AppendUint(b, uint64(height), 10)
	return b
}

func blockKey(hash types.Hash) []byte {
	b := make([]byte, 0, 1+len(hash))
	b = append(b, blockPrefixB...)
	b = append(b, hash[:]...)
	return b
}

func receiptKey(hash types.Hash) []byte {
	return append([]byte(receiptPrefix), hash[:]...)
}

func accountKey(addr types.Address) []byte {
	return append([]byte(accountPrefix), addr[:]...)
}

func slotKey(contract types.Address, key []byte) []byte {
	b := make([]byte, 0, 1+len(contract)+len(key))
	b = append(b, slotPrefix...)
	b = append(b, contract[:]...)
	return append(b, key...)
}
