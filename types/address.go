package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	AddressLength = 20
	// WordLength 是 ABI 参数字的长度，地址左侧补零对齐
	WordLength = 32
)

type Address [AddressLength]uint8

func (addr Address) ToSlice() []byte {
	return append([]byte(nil), addr[:]...)
}

func (addr Address) IsZero() bool {
	return addr == Address{}
}

// String 返回带 "0x" 前缀的十六进制地址
func (addr Address) String() string {
	return "0x" + hex.EncodeToString(addr[:])
}

// Word 返回地址的 32 字节 ABI 表示
func (addr Address) Word() [WordLength]byte {
	var w [WordLength]byte
	copy(w[WordLength-AddressLength:], addr[:])
	return w
}

func AddressFromBytes(b []byte) Address {
	if len(b) != AddressLength {
		panic("length must be 20 bytes")
	}
	var value Address
	copy(value[:], b)
	return value
}

// AddressFromWord 解析一个 ABI 参数字，高 12 字节必须为零
func AddressFromWord(w []byte) (Address, error) {
	if len(w) != WordLength {
		return Address{}, fmt.Errorf("address word must be %d bytes, got %d", WordLength, len(w))
	}
	pad := WordLength - AddressLength
	if !bytes.Equal(w[:pad], make([]byte, pad)) {
		return Address{}, fmt.Errorf("dirty address padding %x", w[:pad])
	}
	return AddressFromBytes(w[pad:]), nil
}

func AddressFromHex(s string) (Address, error) {
	b, err := decodeFixedHex(s, AddressLength, "address")
	if err != nil {
		return Address{}, err
	}
	return AddressFromBytes(b), nil
}

func (addr Address) MarshalText() ([]byte, error) {
	return []byte(addr.String()), nil
}

func (addr *Address) UnmarshalText(data []byte) error {
	a, err := AddressFromHex(string(data))
	if err != nil {
		return err
	}
	*addr = a
	return nil
}

// decodeFixedHex 接受带或不带 "0x" 前缀的十六进制串，并校验解码后的长度
func decodeFixedHex(s string, size int, what string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", what, s, err)
	}
	if len(b) != size {
		return nil, fmt.Errorf("invalid %s length, expected %d bytes, got %d", what, size, len(b))
	}
	return b, nil
}
