package verifier

import (
	"context"
	"testing"
)

// RunT 把每个场景作为 t 的子测试运行
func (s *Suite) RunT(t *testing.T, factory BackendFactory) {
	t.Helper()
	for _, sc := range s.Scenarios {
		sc := sc
		t.Run(sc.FullName(), func(t *testing.T) {
			res := s.runOne(context.Background(), factory, sc)
			if !res.Passed {
				t.Fatalf("%s phase failed: %v", res.Phase, res.Err)
			}
		})
	}
}
