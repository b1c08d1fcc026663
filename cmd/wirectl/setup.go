package main

import (
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/tracewire/internal/config"
	"github.com/danmuck/tracewire/internal/observability"
	"github.com/danmuck/tracewire/internal/protocol/bridge"
	"github.com/danmuck/tracewire/internal/protocol/dto"
	"github.com/danmuck/tracewire/internal/protocol/idl"
	"github.com/danmuck/tracewire/internal/protocol/registry"
	"github.com/danmuck/tracewire/internal/protocol/serializer"
)

// loadConfig returns the defaults when path is empty.
func loadConfig(path string) (config.CodecConfig, error) {
	if path == "" {
		return config.DefaultCodecConfig(), nil
	}
	cfg, err := config.LoadCodecConfig(path)
	if err != nil {
		return config.CodecConfig{}, err
	}
	if cfg.SchemaFile != "" && !filepath.IsAbs(cfg.SchemaFile) {
		cfg.SchemaFile = filepath.Join(filepath.Dir(path), cfg.SchemaFile)
	}
	log.Info().Str("path", path).Str("scheme", cfg.Scheme.String()).Msg("loaded codec config")
	return cfg, nil
}

// buildRegistry registers the built-in messages plus every schema from the
// configured IDL file that was given a type code.
func buildRegistry(cfg config.CodecConfig) (*registry.Registry, error) {
	b := registry.NewBuilder("wirectl")
	if err := dto.RegisterDefaults(b); err != nil {
		return nil, err
	}
	if cfg.SchemaFile != "" {
		schemas, err := idl.LoadFile(cfg.SchemaFile, cfg.SchemaCodes)
		if err != nil {
			return nil, err
		}
		for _, s := range schemas {
			if s.TypeCode() == 0 {
				continue
			}
			if err := b.RegisterSchema(s); err != nil {
				return nil, err
			}
		}
	}
	return b.Build(), nil
}

// newFactory wires the registry, optionally narrowed to a consumer, into a
// metered serializer factory.
func newFactory(cfg config.CodecConfig, consumer string) (*serializer.Factory, error) {
	reg, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}
	var loc registry.Locator = reg
	if consumer != "" {
		scoped, err := cfg.Scope(reg, consumer)
		if err != nil {
			return nil, err
		}
		loc = scoped
	}
	return serializer.NewFactory(loc, cfg.FactoryOptions(serializer.WithObserver(observability.NewCodecMetrics()))...)
}

// newResultBridge tries the gRPC wrapper first and falls back to legacy
// envelopes decoded by dec. Each transport is logged and metered under its
// own name.
func newResultBridge(dec bridge.EnvelopeDecoder) bridge.Bridge {
	return bridge.Chain{
		observability.BridgeMetrics("grpc", observability.BridgeLogger(log.Logger, "grpc", bridge.NewGRPCResultBridge())),
		observability.BridgeMetrics("legacy", observability.BridgeLogger(log.Logger, "legacy", bridge.NewLegacyResultBridge(dec))),
	}
}
