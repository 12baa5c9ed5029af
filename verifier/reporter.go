package verifier

import (
	"github.com/sirupsen/logrus"
)

// LogReporter 用 logrus 输出每个场景的结果
type LogReporter struct {
	logger logrus.FieldLogger
}

func NewLogReporter(logger logrus.FieldLogger) *LogReporter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) ScenarioStarted(runID string, sc Scenario) {
	r.logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"group":    sc.Group,
		"scenario": sc.Name,
	}).Debug("scenario started")
}

func (r *LogReporter) ScenarioFinished(runID string, res Result) {
	entry := r.logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"group":    res.Group,
		"scenario": res.Name,
		"duration": res.Duration,
	})
	if res.Passed {
		entry.Info("PASS")
		return
	}
	entry.WithField("phase", res.Phase).WithError(res.Err).Error("FAIL")
}

func (r *LogReporter) SuiteFinished(sum Summary) {
	entry := r.logger.WithFields(logrus.Fields{
		"run_id":   sum.RunID,
		"passed":   sum.Passed,
		"failed":   sum.Failed,
		"duration": sum.Duration,
	})
	if sum.OK() {
		entry.Info("all scenarios passed")
		return
	}
	entry.Error("some scenarios failed")
}
