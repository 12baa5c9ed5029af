package chaintest

import (
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/crypto"
	"github.com/virtue186/fortesting/types"
)

// Signer 代表一个可以签署交易的身份
type Signer interface {
	Address() types.Address
	SignTx(tx *core.Transaction) error
}

// signer 是单私钥签名者
type signer struct {
	key  crypto.PrivateKey
	addr types.Address
}

func NewSigner(key crypto.PrivateKey) Signer {
	return &signer{key: key, addr: key.PublicKey().Address()}
}

// NewAccount 生成一个新的随机身份，余额为零
func NewAccount() Signer {
	return NewSigner(crypto.GeneratePrivateKey())
}

func (s *signer) Address() types.Address {
	return s.addr
}

func (s *signer) SignTx(tx *core.Transaction) error {
	return tx.Sign(s.key)
}

// DevSigners 返回前 n 个开发账户，它们在开发链的创世块中有余额
func DevSigners(n int) []Signer {
	signers := make([]Signer, n)
	for i := range signers {
		signers[i] = NewSigner(crypto.DevKey(i))
	}
	return signers
}
