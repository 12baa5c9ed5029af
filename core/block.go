package core

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/virtue186/fortesting/crypto"
	"github.com/virtue186/fortesting/types"
)

type Header struct {
	Version       uint32
	PrevBlockHash types.Hash
	DataHash      types.Hash
	Timestamp     int64
	Height        uint32
}

type Block struct {
	*Header
	Transactions []*Transaction
	Validator    crypto.PublicKey
	Signature    crypto.Signature

	// cached version of the header hash
	hash types.Hash
}

const headerSize = 4 + 32 + 32 + 8 + 4

// Bytes 返回区块头的定长大端编码，区块哈希和签名都基于它
func (h *Header) Bytes() []byte {
	b := make([]byte, 0, headerSize)
	b = binary.BigEndian.AppendUint32(b, h.Version)
	b = append(b, h.PrevBlockHash[:]...)
	b = append(b, h.DataHash[:]...)
	b = binary.BigEndian.AppendUint64(b, uint64(h.Timestamp))
	b = binary.BigEndian.AppendUint32(b, h.Height)
	return b
}

func (b *Block) Hash(hasher Hasher[*Header]) types.Hash {
	if b.hash.IsZero() {
		b.hash = hasher.Hash(b.Header)
	}
	return b.hash
}

func NewBlock(header *Header, transactions []*Transaction) *Block {
	return &Block{
		Header:       header,
		Transactions: transactions,
	}
}

// NewBlockFromPreHeader 在 h 之后构造一个包含 txx 的未签名区块
func NewBlockFromPreHeader(h *Header, txx []*Transaction) *Block {
	ts := time.Now().UnixNano()
	if ts <= h.Timestamp {
		ts = h.Timestamp + 1
	}
	return NewBlock(&Header{
		Version:       h.Version,
		DataHash:      CalculateDataHash(txx),
		PrevBlockHash: BlockHasher{}.Hash(h),
		Timestamp:     ts,
		Height:        h.Height + 1,
	}, txx)
}

func (b *Block) Sign(privateKey crypto.PrivateKey) error {
	h := BlockHasher{}.Hash(b.Header)
	sig, err := privateKey.Sign(h[:])
	if err != nil {
		return err
	}
	b.Validator = privateKey.PublicKey()
	b.Signature = sig
	return nil
}

// Verify 检查出块者签名、每笔交易的签名以及交易根
func (b *Block) Verify() error {
	if b.Signature == nil {
		return fmt.Errorf("block %d is not signed", b.Height)
	}
	h := BlockHasher{}.Hash(b.Header)
	if !b.Signature.Verify(b.Validator, h[:]) {
		return fmt.Errorf("block %s signature is invalid", h)
	}

	for _, tx := range b.Transactions {
		if err := tx.Verify(); err != nil {
			return fmt.Errorf("tx %s: %w", tx.Hash(TxHasher{}), err)
		}
	}

	if dataHash := CalculateDataHash(b.Transactions); dataHash != b.DataHash {
		return fmt.Errorf("data hash mismatch: header %s, computed %s", b.DataHash, dataHash)
	}
	return nil
}

// CalculateDataHash 是区块内全部交易哈希按顺序拼接后的 Keccak-256
func CalculateDataHash(txx []*Transaction) types.Hash {
	hashes := make([][]byte, len(txx))
	for i, tx := range txx {
		h := tx.Hash(TxHasher{})
		hashes[i] = h[:]
	}
	return crypto.Keccak256Hash(hashes...)
}

func (b *Block) Encode(w io.Writer, encoder Encoder[*Block]) error {
	return encoder.Encode(w, b)
}

func DecodeBlock(data []byte) (*Block, error) {
	block := new(Block)
	if err := fromGobBytes(data, block); err != nil {
		return nil, err
	}
	return block, nil
}
