package core

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/holiman/uint256"
	"github.com/virtue186/fortesting/crypto"
	"github.com/virtue186/fortesting/types"
)

type Transaction struct {
	Nonce uint64
	// To 为 nil 时表示部署合约，Data 由 DeployData 生成
	To        *types.Address
	Value     uint256.Int
	Data      []byte
	From      crypto.PublicKey
	Signature crypto.Signature

	hash      types.Hash
	firstSeen int64
}

func NewTransaction(data []byte) *Transaction {
	return &Transaction{
		Data: data,
	}
}

// NewCallTransaction 构造一个调用 to 的交易
func NewCallTransaction(nonce uint64, to types.Address, value *uint256.Int, data []byte) *Transaction {
	tx := &Transaction{Nonce: nonce, To: &to, Data: data}
	if value != nil {
		tx.Value.Set(value)
	}
	return tx
}

// NewDeployTransaction 构造一个部署合约的交易
func NewDeployTransaction(nonce uint64, code string, value *uint256.Int, args []byte) *Transaction {
	tx := &Transaction{Nonce: nonce, Data: DeployData(code, args)}
	if value != nil {
		tx.Value.Set(value)
	}
	return tx
}

// DeployData 编码部署负载: 1 字节代码名长度 + 代码名 + 构造参数
// 名称不合法时写入零长度，ParseDeployData 会拒绝这样的数据
func DeployData(code string, args []byte) []byte {
	if ValidateCodeName(code) != nil {
		code = ""
	}
	b := make([]byte, 0, 1+len(code)+len(args))
	b = append(b, byte(len(code)))
	b = append(b, code...)
	return append(b, args...)
}

// MaxCodeNameLength 是部署数据中一个字节长度前缀能表示的最大名称长度
const MaxCodeNameLength = 255

func ValidateCodeName(code string) error {
	if code == "" || len(code) > MaxCodeNameLength {
		return fmt.Errorf("contract code name must be 1..%d bytes, got %d", MaxCodeNameLength, len(code))
	}
	return nil
}

// ParseDeployData 是 DeployData 的逆操作
func ParseDeployData(data []byte) (string, []byte, error) {
	if len(data) == 0 {
		return "", nil, fmt.Errorf("empty deploy data")
	}
	n := int(data[0])
	if n == 0 || len(data) < 1+n {
		return "", nil, fmt.Errorf("malformed deploy data")
	}
	return string(data[1 : 1+n]), data[1+n:], nil
}

func (tx *Transaction) IsDeploy() bool {
	return tx.To == nil
}

func (tx *Transaction) Hash(hasher Hasher[*Transaction]) types.Hash {
	if tx.hash.IsZero() {
		tx.hash = hasher.Hash(tx)
	}
	return tx.hash
}

// signingBytes 是签名覆盖的内容: nonce | to | value | data
func (tx *Transaction) signingBytes() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.BigEndian, tx.Nonce)
	if tx.To == nil {
		buf.WriteByte(0)
	} else {
		buf.WriteByte(1)
		buf.Write(tx.To[:])
	}
	v := tx.Value.Bytes32()
	buf.Write(v[:])
	buf.Write(tx.Data)
	return buf.Bytes()
}

func (tx *Transaction) SigningHash() []byte {
	return crypto.Keccak256(tx.signingBytes())
}

func (tx *Transaction) Sign(privateKey crypto.PrivateKey) error {
	sign, err := privateKey.Sign(tx.SigningHash())
	if err != nil {
		return err
	}
	tx.From = privateKey.PublicKey()
	tx.Signature = sign
	tx.hash = types.Hash{}
	return nil
}

func (tx *Transaction) Verify() error {
	if tx.Signature == nil {
		return fmt.Errorf("transaction signature is nil: %w", ErrInvalidSignature)
	}
	if !tx.Signature.Verify(tx.From, tx.SigningHash()) {
		return ErrInvalidSignature
	}
	return nil
}

// Sender 返回签名者的地址
func (tx *Transaction) Sender() types.Address {
	return tx.From.Address()
}

func (tx *Transaction) SetFirstSeen(firstSeen int64) {
	tx.firstSeen = firstSeen
}

func (tx *Transaction) GetFirstSeen() int64 {
	return tx.firstSeen
}

func (tx *Transaction) Encode(w io.Writer, enc Encoder[*Transaction]) error {
	return enc.Encode(w, tx)
}

func (tx *Transaction) Decode(r io.Reader, dec Decoder[*Transaction]) error {
	return dec.Decode(r, tx)
}
