package observability

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/tracewire/internal/protocol/bridge"
)

// BridgeLogger logs every response a bridge recognizes. Unrecognized
// wrappers pass through silently.
func BridgeLogger(logger zerolog.Logger, name string, next bridge.Bridge) bridge.Bridge {
	return bridge.Func(func(raw any) (bridge.Result, bool, error) {
		start := time.Now()
		res, ok, err := next.Bridge(raw)
		if !ok && err == nil {
			return res, ok, err
		}

		event := logger.Debug()
		if err != nil {
			event = logger.Warn().Err(err)
		} else if !res.IsSuccess() {
			event = logger.Info().Str("result_message", res.Message())
		}
		event.
			Str("bridge", name).
			Bool("success", err == nil && res.IsSuccess()).
			Dur("duration", time.Since(start)).
			Msg("bridge_result")
		return res, ok, err
	})
}

// BridgeMetrics records outcome and duration for every call into next.
func BridgeMetrics(name string, next bridge.Bridge) bridge.Bridge {
	return bridge.Func(func(raw any) (bridge.Result, bool, error) {
		start := time.Now()
		res, ok, err := next.Bridge(raw)
		RecordBridge(name, ok, err, time.Since(start))
		return res, ok, err
	})
}
