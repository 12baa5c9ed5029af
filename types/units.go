package types

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// WeiPerEther 是一个原生单位 (ether) 对应的最小单位 (wei) 数量
var WeiPerEther = uint256.NewInt(1_000_000_000_000_000_000)

// Wei 返回以最小单位表示的金额
func Wei(n uint64) *uint256.Int {
	return uint256.NewInt(n)
}

// Ether 返回 n 个原生单位对应的 wei 数量
func Ether(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), WeiPerEther)
}

// ParseAmount 解析十进制金额字符串
func ParseAmount(s string) (*uint256.Int, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok || b.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("amount %q overflows 256 bits", s)
	}
	return v, nil
}

// FormatAmount 以十进制字符串输出金额
func FormatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.ToBig().String()
}
