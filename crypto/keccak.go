package crypto

import (
	"github.com/virtue186/fortesting/types"
	"golang.org/x/crypto/sha3"
)

func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

func Keccak256Hash(data ...[]byte) types.Hash {
	return types.HashFromBytes(Keccak256(data...))
}
