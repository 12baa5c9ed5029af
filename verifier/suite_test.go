package verifier

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virtue186/fortesting/api"
	"github.com/virtue186/fortesting/chaintest"
	"github.com/virtue186/fortesting/contracts/fortesting"
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/rpcclient"
)

func TestScenarios(t *testing.T) {
	NewSuite().RunT(t, SimulatedFactory(nil))
}

// unguarded 是一个有缺陷的 ForTesting: setValue 什么都不做也不检查调用者
type unguarded struct {
	*fortesting.Contract
}

func (c unguarded) Invoke(ctx *core.Context, m *core.Method, args []any) ([]any, error) {
	if m.Name == "setValue" {
		return nil, nil
	}
	return c.Contract.Invoke(ctx, m, args)
}

func brokenFactory() BackendFactory {
	return func(context.Context) (*Target, error) {
		reg := core.NewRegistry()
		reg.Register(fortesting.Code, unguarded{fortesting.New()})
		sim, err := chaintest.NewSimulated(nil, reg, 2)
		if err != nil {
			return nil, err
		}
		signers := chaintest.DevSigners(2)
		return &Target{Backend: sim, Owner: signers[0], Other: signers[1], Close: sim.Close}, nil
	}
}

func TestSuiteReportsEveryFailure(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	sum := NewSuite().Run(context.Background(), brokenFactory(), NewLogReporter(logger))

	assert.False(t, sum.OK())
	assert.NotEmpty(t, sum.RunID)
	assert.Len(t, sum.Results, len(Scenarios()))
	assert.Equal(t, len(Scenarios()), sum.Passed+sum.Failed)

	failed := map[string]Result{}
	for _, res := range sum.Results {
		if !res.Passed {
			failed[res.Group+"/"+res.Name] = res
		}
	}
	assert.Len(t, failed, 4)
	for _, name := range []string{
		"owner/setValue is owner-only",
		"functions/setValue changes the stored value",
		"events/setValue emits ValueChanged",
		"events/reverted call emits nothing",
	} {
		res, ok := failed[name]
		require.True(t, ok, name)
		assert.Equal(t, PhaseRun, res.Phase)
		var ae *AssertionError
		require.ErrorAs(t, res.Err, &ae)
		assert.Equal(t, name, ae.Scenario)
	}

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Equal(t, 4, last.Data["failed"])
}

func TestSetupFailureIsReported(t *testing.T) {
	boom := errors.New("no backend")
	suite := &Suite{Scenarios: ScenariosInGroup(GroupOwner)}
	sum := suite.Run(context.Background(), func(context.Context) (*Target, error) {
		return nil, boom
	}, nil)

	assert.Equal(t, len(suite.Scenarios), sum.Failed)
	for _, res := range sum.Results {
		assert.Equal(t, PhaseSetup, res.Phase)
		assert.ErrorIs(t, res.Err, boom)
	}
}

func TestDeployFailureIsSetupPhase(t *testing.T) {
	factory := func(context.Context) (*Target, error) {
		// 注册表中没有 ForTesting，部署会失败
		sim, err := chaintest.NewSimulated(nil, core.NewRegistry(), 2)
		if err != nil {
			return nil, err
		}
		signers := chaintest.DevSigners(2)
		return &Target{Backend: sim, Owner: signers[0], Other: signers[1], Close: sim.Close}, nil
	}
	suite := &Suite{Scenarios: ScenariosInGroup(GroupOwner)[:1]}
	sum := suite.Run(context.Background(), factory, nil)

	require.Len(t, sum.Results, 1)
	assert.Equal(t, PhaseSetup, sum.Results[0].Phase)
	assert.ErrorIs(t, sum.Results[0].Err, core.ErrUnknownCode)
}

func TestSameIdentityIsRejected(t *testing.T) {
	signer := chaintest.DevSigners(1)[0]
	_, err := DefaultSetup(context.Background(), &Target{Owner: signer, Other: signer})
	assert.Error(t, err)
}

func TestRemoteScenarios(t *testing.T) {
	reg := core.NewRegistry()
	fortesting.Register(reg)
	sim, err := chaintest.NewSimulated(nil, reg, 2)
	require.NoError(t, err)
	srv := httptest.NewServer(api.NewAPIServer("", nil, sim).Handler())
	t.Cleanup(func() {
		srv.Close()
		require.NoError(t, sim.Close())
	})

	client := rpcclient.New(srv.URL + "/rpc")
	client.PollInterval = 10 * time.Millisecond
	signers := chaintest.DevSigners(2)

	suite := &Suite{Scenarios: ScenariosInGroup(GroupProperties)}
	sum := suite.Run(context.Background(), RemoteFactory(client, signers[0], signers[1]), nil)
	for _, res := range sum.Results {
		assert.True(t, res.Passed, "%s/%s: %v", res.Group, res.Name, res.Err)
	}
	assert.True(t, sum.OK())
}
