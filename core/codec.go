package core

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/virtue186/fortesting/crypto"
	"github.com/virtue186/fortesting/types"
)

// Encoder 定义了统一的、无状态的编码器接口
type Encoder[T any] interface {
	Encode(w io.Writer, v T) error
}

// Decoder 定义了统一的、无状态的解码器接口
type Decoder[T any] interface {
	Decode(r io.Reader, v T) error
}

// GOBEncoder 用于落盘的区块、回执、账户以及 API 中的原始交易
type GOBEncoder[T any] struct{}

func (e GOBEncoder[T]) Encode(w io.Writer, v T) error {
	return gob.NewEncoder(w).Encode(v)
}

type GOBDecoder[T any] struct{}

func (d GOBDecoder[T]) Decode(r io.Reader, v T) error {
	return gob.NewDecoder(r).Decode(v)
}

func gobBytes[T any](v T) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := (GOBEncoder[T]{}).Encode(buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fromGobBytes[T any](b []byte, v T) error {
	return GOBDecoder[T]{}.Decode(bytes.NewReader(b), v)
}

type Hasher[T any] interface {
	Hash(T) types.Hash
}

// BlockHasher 对区块头的定长编码做 Keccak-256
type BlockHasher struct{}

func (BlockHasher) Hash(h *Header) types.Hash {
	return crypto.Keccak256Hash(h.Bytes())
}

// TxHasher 的结果覆盖签名内容以及发送方和签名本身
type TxHasher struct{}

func (TxHasher) Hash(tx *Transaction) types.Hash {
	return crypto.Keccak256Hash(tx.signingBytes(), tx.From, tx.Signature)
}
