// Package obstest builds a fully wired observability provider whose logs and
// metrics can be asserted on in tests.
package obstest

import (
	"testing"

	infraobs "github.com/Zhima-Mochi/coffeeshop/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/coffeeshop/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/coffeeshop/internal/infrastructure/observability/zaplogger"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type Harness struct {
	*infraobs.Provider
	Logs     *observer.ObservedLogs
	Registry *prometheus.Registry
}

func New(t testing.TB) *Harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	reg := prometheus.NewRegistry()
	counters, histograms := prometrics.Instruments(prometrics.New(reg, "", ""))
	return &Harness{
		Provider: infraobs.New(nil, zaplogger.Wrap(zap.New(core)), counters, histograms),
		Logs:     logs,
		Registry: reg,
	}
}

// Messages returns the logged entries with the given message.
func (h *Harness) Messages(msg string) []observer.LoggedEntry {
	return h.Logs.FilterMessage(msg).All()
}
