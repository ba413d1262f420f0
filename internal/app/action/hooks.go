package action

import (
	"context"
	"time"

	"github.com/jsamuelsen11/go-action-service/internal/platform/telemetry"
)

// TelemetryHooks returns an entry and exit hook pair that counts and times
// actions. The entry hook returns the start time; the exit hook records
// service.action.total and service.action.duration and returns the elapsed
// time.
func TelemetryHooks(m *telemetry.Metrics) (EntryHook, ExitHook) {
	entry := func(_ context.Context, call *Call) any {
		return call.Started
	}
	exit := func(ctx context.Context, call *Call, resp *Response) any {
		elapsed := time.Since(call.Started)
		result := telemetry.ResultSuccess
		if resp.Failed() {
			result = telemetry.ResultError
		}
		m.RecordAction(ctx, call.Service, call.Action, result, elapsed)
		return elapsed
	}
	return entry, exit
}
