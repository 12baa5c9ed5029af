package core

import (
	"github.com/virtue186/fortesting/types"
)

type ReceiptStatus uint8

const (
	ReceiptReverted ReceiptStatus = 0
	ReceiptSuccess  ReceiptStatus = 1
)

func (s ReceiptStatus) String() string {
	if s == ReceiptSuccess {
		return "success"
	}
	return "reverted"
}

// Log 是合约执行过程中产生的事件记录，Topics[0] 为事件签名的 Keccak-256
type Log struct {
	Address types.Address `json:"address"`
	Event   string        `json:"event"`
	Topics  []types.Hash  `json:"topics"`
	Data    []byte        `json:"data"`
}

// Receipt 记录一笔已上链交易的执行结果
type Receipt struct {
	TxHash          types.Hash     `json:"tx_hash"`
	BlockHash       types.Hash     `json:"block_hash"`
	BlockHeight     uint32         `json:"block_height"`
	From            types.Address  `json:"from"`
	To              *types.Address `json:"to,omitempty"`
	ContractAddress types.Address  `json:"contract_address"`
	Status          ReceiptStatus  `json:"status"`
	RevertReason    string         `json:"revert_reason,omitempty"`
	Return          []byte         `json:"return,omitempty"`
	Logs            []*Log         `json:"logs"`
}

func (r *Receipt) Succeeded() bool {
	return r.Status == ReceiptSuccess
}

func (r *Receipt) Encode() ([]byte, error) {
	return gobBytes(r)
}

func DecodeReceipt(b []byte) (*Receipt, error) {
	r := new(Receipt)
	if err := fromGobBytes(b, r); err != nil {
		return nil, err
	}
	return r, nil
}
