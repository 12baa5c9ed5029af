package types

import (
	"crypto/rand"
	"encoding/hex"
)

const HashLength = 32

// Hash 是交易、区块和事件主题共用的 32 字节摘要
type Hash [HashLength]uint8

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) ToSlice() []byte {
	return append([]byte(nil), h[:]...)
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// Short 返回前 4 字节，用于日志
func (h Hash) Short() string {
	return hex.EncodeToString(h[:4])
}

func HashFromBytes(b []byte) Hash {
	if len(b) != HashLength {
		panic("hash length must be 32 bytes")
	}
	var h Hash
	copy(h[:], b)
	return h
}

func HashFromHex(s string) (Hash, error) {
	b, err := decodeFixedHex(s, HashLength, "hash")
	if err != nil {
		return Hash{}, err
	}
	return HashFromBytes(b), nil
}

func RandomBytes(size int) []byte {
	token := make([]byte, size)
	if _, err := rand.Read(token); err != nil {
		panic(err)
	}
	return token
}

func RandomHash() Hash {
	return HashFromBytes(RandomBytes(HashLength))
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(data []byte) error {
	v, err := HashFromHex(string(data))
	if err != nil {
		return err
	}
	*h = v
	return nil
}
