package verifier

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/holiman/uint256"
	"github.com/virtue186/fortesting/chaintest"
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/types"
)

// AssertionError 描述一次失败的检查
type AssertionError struct {
	Scenario string
	Check    string
	Expected string
	Actual   string
	// Diff 是 go-cmp 生成的差异，简单值比较时为空
	Diff string
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	if e.Scenario != "" {
		fmt.Fprintf(&buf, "%s: ", e.Scenario)
	}
	fmt.Fprintf(&buf, "check %q failed\n", e.Check)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual:   %s", e.Actual)
	if e.Diff != "" {
		fmt.Fprintf(&buf, "\n  Diff (-want +got):\n%s", e.Diff)
	}
	return buf.String()
}

var uintComparer = cmp.Comparer(func(a, b *uint256.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Eq(b)
})

// ExpectSuccess 要求交易执行成功
func ExpectSuccess(check string, r *core.Receipt) error {
	if r.Succeeded() {
		return nil
	}
	return &AssertionError{
		Check:    check,
		Expected: "transaction succeeds",
		Actual:   fmt.Sprintf("reverted: %q", r.RevertReason),
	}
}

// ExpectRevert 要求交易以 reason 被拒绝且没有留下日志
func ExpectRevert(check string, r *core.Receipt, reason string) error {
	if r.Succeeded() {
		return &AssertionError{
			Check:    check,
			Expected: fmt.Sprintf("reverted: %q", reason),
			Actual:   "transaction succeeded",
		}
	}
	if r.RevertReason != reason {
		return &AssertionError{
			Check:    check,
			Expected: fmt.Sprintf("reverted: %q", reason),
			Actual:   fmt.Sprintf("reverted: %q", r.RevertReason),
		}
	}
	if len(r.Logs) != 0 {
		return &AssertionError{
			Check:    check,
			Expected: "no logs on a reverted transaction",
			Actual:   fmt.Sprintf("%d logs", len(r.Logs)),
		}
	}
	return nil
}

func ExpectUint(check string, got, want *uint256.Int) error {
	if got != nil && got.Eq(want) {
		return nil
	}
	return &AssertionError{
		Check:    check,
		Expected: types.FormatAmount(want),
		Actual:   types.FormatAmount(got),
	}
}

func ExpectAddress(check string, got, want types.Address) error {
	if got == want {
		return nil
	}
	return &AssertionError{
		Check:    check,
		Expected: want.String(),
		Actual:   got.String(),
	}
}

// ExpectEvents 要求事件序列与 want 完全一致，包括参数
func ExpectEvents(check string, got, want []chaintest.Event) error {
	if len(got) == 0 && len(want) == 0 {
		return nil
	}
	if cmp.Equal(want, got, uintComparer) {
		return nil
	}
	return &AssertionError{
		Check:    check,
		Expected: formatEvents(want),
		Actual:   formatEvents(got),
		Diff:     cmp.Diff(want, got, uintComparer),
	}
}

// Ev 构造一个期望的事件
func Ev(name string, args ...any) chaintest.Event {
	return chaintest.Event{Name: name, Args: args}
}

func formatEvents(events []chaintest.Event) string {
	if len(events) == 0 {
		return "no events"
	}
	parts := make([]string, len(events))
	for i, e := range events {
		args := make([]string, len(e.Args))
		for j, a := range e.Args {
			args[j] = formatArg(a)
		}
		parts[i] = e.Name + "(" + strings.Join(args, ", ") + ")"
	}
	return strings.Join(parts, ", ")
}

func formatArg(a any) string {
	switch v := a.(type) {
	case *uint256.Int:
		return types.FormatAmount(v)
	case types.Address:
		return v.String()
	}
	return fmt.Sprint(a)
}
