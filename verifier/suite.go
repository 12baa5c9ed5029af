package verifier

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Phase string

const (
	PhaseSetup Phase = "setup"
	PhaseRun   Phase = "run"
)

// Scenario 是一个独立的检查，在新部署的合约上运行
type Scenario struct {
	Group string
	Name  string
	Run   func(ctx context.Context, env *Env) error
}

func (s Scenario) FullName() string {
	return s.Group + "/" + s.Name
}

// Result 是单个场景的结果
type Result struct {
	Group    string
	Name     string
	Passed   bool
	Phase    Phase
	Duration time.Duration
	Err      error
}

// Summary 汇总一次运行
type Summary struct {
	RunID    string
	Results  []Result
	Passed   int
	Failed   int
	Duration time.Duration
}

func (s Summary) OK() bool {
	return s.Failed == 0
}

// Reporter 接收每个场景的结果
type Reporter interface {
	ScenarioStarted(runID string, sc Scenario)
	ScenarioFinished(runID string, res Result)
	SuiteFinished(sum Summary)
}

type Suite struct {
	Scenarios []Scenario
	Setup     SetupFunc
}

// NewSuite 返回包含全部内置场景的 Suite
func NewSuite() *Suite {
	return &Suite{Scenarios: Scenarios(), Setup: DefaultSetup}
}

// Run 依次运行所有场景。单个场景失败不会中断运行，每个结果都交给 reporter。
func (s *Suite) Run(ctx context.Context, factory BackendFactory, reporter Reporter) Summary {
	sum := Summary{RunID: uuid.NewString()}
	start := time.Now()

	for _, sc := range s.Scenarios {
		if reporter != nil {
			reporter.ScenarioStarted(sum.RunID, sc)
		}
		res := s.runOne(ctx, factory, sc)
		if res.Passed {
			sum.Passed++
		} else {
			sum.Failed++
		}
		sum.Results = append(sum.Results, res)
		if reporter != nil {
			reporter.ScenarioFinished(sum.RunID, res)
		}
	}

	sum.Duration = time.Since(start)
	if reporter != nil {
		reporter.SuiteFinished(sum)
	}
	return sum
}

func (s *Suite) runOne(ctx context.Context, factory BackendFactory, sc Scenario) (res Result) {
	res = Result{Group: sc.Group, Name: sc.Name, Phase: PhaseSetup}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		res.Passed = res.Err == nil
		var ae *AssertionError
		if errors.As(res.Err, &ae) && ae.Scenario == "" {
			ae.Scenario = sc.FullName()
		}
	}()

	target, err := factory(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	if target.Close != nil {
		defer func() {
			if err := target.Close(); err != nil && res.Err == nil {
				res.Err = err
			}
		}()
	}

	setup := s.Setup
	if setup == nil {
		setup = DefaultSetup
	}
	env, err := setup(ctx, target)
	if err != nil {
		res.Err = err
		return res
	}

	res.Phase = PhaseRun
	res.Err = sc.Run(ctx, env)
	return res
}
