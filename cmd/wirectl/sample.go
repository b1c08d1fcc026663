package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/danmuck/tracewire/internal/protocol/codec"
	"github.com/danmuck/tracewire/internal/protocol/dto"
	"github.com/danmuck/tracewire/internal/protocol/frame"
	"github.com/danmuck/tracewire/internal/protocol/schema"
)

func runSample(args []string, stdout io.Writer) error {
	var (
		configPath  string
		outPath     string
		count       int
		schemeName  string
		compression string
	)
	flagSet := pflag.NewFlagSet("sample", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "codec config file (defaults apply when empty)")
	flagSet.StringVarP(&outPath, "out", "o", "-", "output file, - for stdout")
	flagSet.IntVarP(&count, "count", "n", 1, "number of frames to write")
	flagSet.StringVar(&schemeName, "scheme", "", "override the configured scheme (tag|compact)")
	flagSet.StringVar(&compression, "compression", "", "override the configured compression (none|lz4|zstd)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if count < 1 {
		return fmt.Errorf("%w: --count must be positive", errUsage)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if schemeName != "" {
		if cfg.Scheme, err = codec.ParseScheme(schemeName); err != nil {
			return err
		}
	}
	if compression != "" {
		if cfg.Compression, err = frame.ParseCompression(compression); err != nil {
			return err
		}
	}
	f, err := newFactory(cfg, "")
	if err != nil {
		return err
	}

	w := stdout
	if outPath != "-" {
		file, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}
	for i := range count {
		msgs := sampleMessages(int64(i))
		if err := f.WriteBatch(w, msgs, cfg.Compression, cfg.Frame); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	log.Info().
		Int("frames", count).
		Str("scheme", cfg.Scheme.String()).
		Str("compression", cfg.Compression.String()).
		Str("out", outPath).
		Msg("sample batches written")
	return nil
}

// sampleMessages returns one of each built-in message kind.
func sampleMessages(seq int64) []schema.Message {
	key := dto.AgentKey{AgentID: "sample-agent", AgentStartTime: 1700000000000}

	span := dto.NewSpan(dto.SpanHeader{
		Agent:           key,
		ApplicationName: "sample-app",
		SpanID:          1000 + seq,
		StartTime:       key.AgentStartTime + seq,
		ServiceType:     1010,
	})
	span.SetParentSpanID(-1)
	span.SetRPC("/orders")
	span.SetElapsed(12)
	span.AddAnnotation(12, "GET /orders")
	span.AddAnnotation(40, "200")

	api := dto.NewApiMetaData(key, 7, "OrderController.list()")
	api.SetLine(42)

	stat := dto.NewFlinkAgentStat(key.AgentID, key.AgentStartTime+seq)
	stat.SetJvmCpuLoad(0.25)
	stat.SetSystemCpuLoad(0.5)

	tx := dto.NewFlinkTransaction()
	tx.SetSampledNewCount(3 + seq)
	tx.SetUnsampledNewCount(1)

	isv := dto.NewIntStringValue(int32(seq))
	isv.SetStringValue("sample")

	return []schema.Message{
		isv,
		span,
		dto.NewSqlMetaData(key, 3, "select * from orders where id = ?"),
		api,
		dto.NewStringMetaData(key, 5, "orders-db"),
		dto.NewResult(true, "stored"),
		stat,
		tx,
	}
}
