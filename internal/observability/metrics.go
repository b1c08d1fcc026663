package observability

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danmuck/tracewire/internal/protocol/codec"
	"github.com/danmuck/tracewire/internal/protocol/frame"
	"github.com/danmuck/tracewire/internal/protocol/registry"
	"github.com/danmuck/tracewire/internal/protocol/schema"
	"github.com/danmuck/tracewire/internal/protocol/serializer"
)

var (
	registerOnce sync.Once

	codecEncodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracewire",
			Subsystem: "codec",
			Name:      "encode_total",
			Help:      "Envelopes encoded, by type code, scheme and result.",
		},
		[]string{"type_code", "scheme", "result"},
	)
	codecDecodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracewire",
			Subsystem: "codec",
			Name:      "decode_total",
			Help:      "Envelopes decoded, by type code, scheme and result.",
		},
		[]string{"type_code", "scheme", "result"},
	)
	codecPayloadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tracewire",
			Subsystem: "codec",
			Name:      "payload_bytes",
			Help:      "Envelope sizes in bytes.",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 10),
		},
		[]string{"direction", "scheme"},
	)
	batchEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracewire",
			Subsystem: "batch",
			Name:      "entries_total",
			Help:      "Batch entries read, by outcome.",
		},
		[]string{"outcome"},
	)
	bridgeResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracewire",
			Subsystem: "bridge",
			Name:      "results_total",
			Help:      "Bridged responses, by bridge and outcome.",
		},
		[]string{"bridge", "outcome"},
	)
	bridgeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tracewire",
			Subsystem: "bridge",
			Name:      "duration_seconds",
			Help:      "Bridge conversion duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
		[]string{"bridge"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(codecEncodes, codecDecodes, codecPayloadBytes, batchEntries, bridgeResults, bridgeDuration)
	})
}

// CodecMetrics records serializer traffic. It satisfies serializer.Observer.
type CodecMetrics struct{}

var _ serializer.Observer = CodecMetrics{}

func NewCodecMetrics() CodecMetrics {
	RegisterMetrics()
	return CodecMetrics{}
}

func (CodecMetrics) Encoded(code uint16, scheme codec.Scheme, n int, err error) {
	codecEncodes.WithLabelValues(strconv.Itoa(int(code)), scheme.String(), ResultLabel(err)).Inc()
	if err == nil {
		codecPayloadBytes.WithLabelValues("encode", scheme.String()).Observe(float64(n))
	}
}

func (CodecMetrics) Decoded(code uint16, scheme codec.Scheme, n int, err error) {
	codecDecodes.WithLabelValues(strconv.Itoa(int(code)), scheme.String(), ResultLabel(err)).Inc()
	if err == nil {
		codecPayloadBytes.WithLabelValues("decode", scheme.String()).Observe(float64(n))
	}
}

// RecordBatch counts the decoded and skipped entries of one batch.
func RecordBatch(res serializer.BatchResult) {
	RegisterMetrics()
	batchEntries.WithLabelValues("decoded").Add(float64(len(res.Messages)))
	batchEntries.WithLabelValues("skipped").Add(float64(len(res.Skipped)))
}

func RecordBridge(name string, matched bool, err error, duration time.Duration) {
	RegisterMetrics()
	outcome := "no_match"
	switch {
	case err != nil:
		outcome = "decode_error"
	case matched:
		outcome = "ok"
	}
	bridgeResults.WithLabelValues(name, outcome).Inc()
	bridgeDuration.WithLabelValues(name).Observe(duration.Seconds())
}

// ResultLabel classifies a codec error for metric labels.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, registry.ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, serializer.ErrUnsupportedScheme):
		return "unsupported_scheme"
	case errors.Is(err, codec.ErrMalformedPayload), errors.Is(err, frame.ErrUnsupportedVersion):
		return "malformed"
	case errors.Is(err, schema.ErrSchemaViolation):
		return "schema_violation"
	case errors.Is(err, serializer.ErrUnsupportedValue), errors.Is(err, schema.ErrValueType):
		return "unsupported_value"
	default:
		return "error"
	}
}
