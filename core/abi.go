package core

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/virtue186/fortesting/crypto"
	"github.com/virtue186/fortesting/types"
)

// ArgType 是合约接口支持的参数类型，每个参数占一个 32 字节字
type ArgType string

const (
	TypeUint256 ArgType = "uint256"
	TypeAddress ArgType = "address"
)

const wordSize = types.WordLength

type Method struct {
	Name    string
	Inputs  []ArgType
	Outputs []ArgType
	Payable bool
	View    bool
}

// Signature 返回规范签名，例如 "setValue(uint256)"
func (m *Method) Signature() string {
	return canonical(m.Name, m.Inputs)
}

// Selector 是签名 Keccak-256 的前 4 字节
func (m *Method) Selector() [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(m.Signature())))
	return sel
}

type Event struct {
	Name   string
	Inputs []ArgType
}

func (e *Event) Signature() string {
	return canonical(e.Name, e.Inputs)
}

func (e *Event) Topic() types.Hash {
	return crypto.Keccak256Hash([]byte(e.Signature()))
}

func canonical(name string, args []ArgType) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = string(a)
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

// ABI 描述一个合约对外暴露的方法和事件
type ABI struct {
	Constructor []ArgType
	Methods     map[string]*Method
	Events      map[string]*Event

	bySelector map[[4]byte]*Method
	byTopic    map[types.Hash]*Event
}

func NewABI(constructor []ArgType, methods []*Method, events []*Event) *ABI {
	a := &ABI{
		Constructor: constructor,
		Methods:     make(map[string]*Method, len(methods)),
		Events:      make(map[string]*Event, len(events)),
		bySelector:  make(map[[4]byte]*Method, len(methods)),
		byTopic:     make(map[types.Hash]*Event, len(events)),
	}
	for _, m := range methods {
		a.Methods[m.Name] = m
		a.bySelector[m.Selector()] = m
	}
	for _, e := range events {
		a.Events[e.Name] = e
		a.byTopic[e.Topic()] = e
	}
	return a
}

// Pack 编码一次方法调用: 选择器 + 参数字
func (a *ABI) Pack(method string, args ...any) ([]byte, error) {
	m, ok := a.Methods[method]
	if !ok {
		return nil, fmt.Errorf("method %q not found", method)
	}
	data, err := PackArgs(m.Inputs, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Signature(), err)
	}
	sel := m.Selector()
	return append(sel[:], data...), nil
}

// MethodByCalldata 根据调用数据的选择器找到方法，返回方法和参数部分
func (a *ABI) MethodByCalldata(data []byte) (*Method, []byte, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("calldata too short: %d bytes", len(data))
	}
	var sel [4]byte
	copy(sel[:], data[:4])
	m, ok := a.bySelector[sel]
	if !ok {
		return nil, nil, fmt.Errorf("unknown selector %x", sel)
	}
	return m, data[4:], nil
}

// UnpackOutputs 解码方法的返回值
func (a *ABI) UnpackOutputs(method string, data []byte) ([]any, error) {
	m, ok := a.Methods[method]
	if !ok {
		return nil, fmt.Errorf("method %q not found", method)
	}
	return UnpackArgs(m.Outputs, data)
}

// DecodeLog 把日志还原为事件及其参数
func (a *ABI) DecodeLog(l *Log) (*Event, []any, error) {
	if len(l.Topics) == 0 {
		return nil, nil, fmt.Errorf("log has no topics")
	}
	e, ok := a.byTopic[l.Topics[0]]
	if !ok {
		return nil, nil, fmt.Errorf("unknown event topic %s", l.Topics[0])
	}
	args, err := UnpackArgs(e.Inputs, l.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", e.Signature(), err)
	}
	return e, args, nil
}

// PackArgs 将参数逐个编码为 32 字节字。
// uint256 接受 *uint256.Int、uint256.Int、uint64 和非负 int；address 接受 types.Address
func PackArgs(typs []ArgType, args ...any) ([]byte, error) {
	if len(args) != len(typs) {
		return nil, fmt.Errorf("argument count mismatch: expected %d, got %d", len(typs), len(args))
	}
	out := make([]byte, 0, wordSize*len(args))
	for i, t := range typs {
		w, err := packWord(t, args[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out = append(out, w[:]...)
	}
	return out, nil
}

func packWord(t ArgType, v any) ([wordSize]byte, error) {
	var w [wordSize]byte
	switch t {
	case TypeUint256:
		var n *uint256.Int
		switch x := v.(type) {
		case *uint256.Int:
			if x == nil {
				return w, fmt.Errorf("nil uint256")
			}
			n = x
		case uint256.Int:
			n = &x
		case uint64:
			n = uint256.NewInt(x)
		case int:
			if x < 0 {
				return w, fmt.Errorf("negative value %d for uint256", x)
			}
			n = uint256.NewInt(uint64(x))
		default:
			return w, fmt.Errorf("cannot use %T as uint256", v)
		}
		return n.Bytes32(), nil
	case TypeAddress:
		addr, ok := v.(types.Address)
		if !ok {
			return w, fmt.Errorf("cannot use %T as address", v)
		}
		return addr.Word(), nil
	default:
		return w, fmt.Errorf("unsupported type %q", t)
	}
}

// UnpackArgs 解码参数字；uint256 解为 *uint256.Int，address 解为 types.Address
func UnpackArgs(typs []ArgType, data []byte) ([]any, error) {
	if len(data) != wordSize*len(typs) {
		return nil, fmt.Errorf("expected %d bytes, got %d", wordSize*len(typs), len(data))
	}
	out := make([]any, len(typs))
	for i, t := range typs {
		w := data[i*wordSize : (i+1)*wordSize]
		switch t {
		case TypeUint256:
			out[i] = new(uint256.Int).SetBytes(w)
		case TypeAddress:
			addr, err := types.AddressFromWord(w)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			out[i] = addr
		default:
			return nil, fmt.Errorf("unsupported type %q", t)
		}
	}
	return out, nil
}
