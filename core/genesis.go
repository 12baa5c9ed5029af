package core

import (
	"github.com/holiman/uint256"
	"github.com/virtue186/fortesting/types"
)

// Genesis 描述链的初始状态
type Genesis struct {
	Timestamp int64
	Alloc     map[types.Address]*uint256.Int
}

func (g *Genesis) Block() *Block {
	return &Block{
		Header: &Header{
			Version:   1,
			Timestamp: g.Timestamp,
			Height:    0,
			DataHash:  CalculateDataHash(nil),
		},
	}
}

func (g *Genesis) apply(s *State) error {
	for addr, bal := range g.Alloc {
		acc, err := s.Get(addr)
		if err != nil {
			return err
		}
		acc.Balance.Set(bal)
		if err := s.Put(addr, acc); err != nil {
			return err
		}
	}
	return nil
}
