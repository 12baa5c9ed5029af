package crypto

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/virtue186/fortesting/types"
)

// PublicKey 是压缩格式的 secp256k1 公钥，可直接被 gob/json 编码
type PublicKey []byte

type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// Signature 是 DER 编码的 ECDSA 签名
type Signature []byte

// Sign 对 32 字节摘要签名
func (k PrivateKey) Sign(digest []byte) (Signature, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}
	return ecdsa.Sign(k.key, digest).Serialize(), nil
}

func (sig Signature) Verify(key PublicKey, digest []byte) bool {
	pub, err := secp256k1.ParsePubKey(key)
	if err != nil {
		return false
	}
	s, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return s.Verify(digest, pub)
}

func GeneratePrivateKey() PrivateKey {
	privateKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		panic(err)
	}
	return PrivateKey{key: privateKey}
}

func NewPrivateKeyFromBytes(b []byte) (PrivateKey, error) {
	if len(b) != 32 {
		return PrivateKey{}, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	return PrivateKey{key: secp256k1.PrivKeyFromBytes(b)}, nil
}

func NewPrivateKeyFromHex(s string) (PrivateKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return PrivateKey{}, err
	}
	return NewPrivateKeyFromBytes(b)
}

// DevKey 返回第 i 个确定性的开发账户私钥，节点在创世块中为它们预置余额
func DevKey(i int) PrivateKey {
	seed := Keccak256([]byte("fortesting/dev/" + strconv.Itoa(i)))
	return PrivateKey{key: secp256k1.PrivKeyFromBytes(seed)}
}

func (k PrivateKey) String() string {
	return hex.EncodeToString(k.key.Serialize())
}

func (k PrivateKey) PublicKey() PublicKey {
	return k.key.PubKey().SerializeCompressed()
}

func (k PublicKey) ToSlice() []byte {
	b := make([]byte, len(k))
	copy(b, k)
	return b
}

// Address 取未压缩公钥 (去掉 0x04 前缀) 的 Keccak-256 的后 20 字节
func (k PublicKey) Address() types.Address {
	pub, err := secp256k1.ParsePubKey(k)
	if err != nil {
		return types.Address{}
	}
	h := Keccak256(pub.SerializeUncompressed()[1:])
	return types.AddressFromBytes(h[len(h)-20:])
}
