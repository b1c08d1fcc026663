package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/tracewire/internal/protocol/codec"
	"github.com/danmuck/tracewire/internal/protocol/frame"
	"github.com/danmuck/tracewire/internal/protocol/registry"
	"github.com/danmuck/tracewire/internal/protocol/serializer"
)

var ErrInvalidConfig = errors.New("config: invalid")

// CodecConfig is the runtime view of a tracewire codec config file.
type CodecConfig struct {
	Scheme      codec.Scheme
	Compression frame.Compression
	Limits      codec.Limits
	Frame       frame.Limits
	Consumers   []ConsumerConfig
	SchemaFile  string
	SchemaCodes map[string]uint16
}

// ConsumerConfig names a scoped view over the shared registry.
type ConsumerConfig struct {
	Name      string
	TypeCodes []uint16
}

// codec.toml key mapping.
type fileConfig struct {
	Scheme      string         `toml:"scheme"`
	Compression string         `toml:"compression"`
	Limits      fileLimits     `toml:"limits"`
	Consumers   []fileConsumer `toml:"consumers"`
	Schemas     fileSchemas    `toml:"schemas"`
}

type fileLimits struct {
	MaxStringBytes    int    `toml:"max_string_bytes"`
	MaxContainerItems int    `toml:"max_container_items"`
	MaxDepth          int    `toml:"max_depth"`
	MaxFrameBytes     uint32 `toml:"max_frame_bytes"`
	MaxFrameEntries   uint32 `toml:"max_frame_entries"`
}

type fileConsumer struct {
	Name      string   `toml:"name"`
	TypeCodes []uint16 `toml:"type_codes"`
}

type fileSchemas struct {
	File      string            `toml:"file"`
	TypeCodes map[string]uint16 `toml:"type_codes"`
}

func DefaultCodecConfig() CodecConfig {
	return CodecConfig{
		Scheme:      codec.SchemeTag,
		Compression: frame.CompressionNone,
		Limits:      codec.DefaultLimits(),
		Frame:       frame.DefaultLimits(),
	}
}

// LoadCodecConfig overlays the keys defined in path onto the defaults.
// Unknown keys are rejected.
func LoadCodecConfig(path string) (CodecConfig, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return CodecConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := fromFile(raw, meta)
	if err != nil {
		return CodecConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseCodecConfig is LoadCodecConfig for in-memory TOML.
func ParseCodecConfig(data string) (CodecConfig, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return CodecConfig{}, fmt.Errorf("config parse failed: %w", err)
	}
	return fromFile(raw, meta)
}

func fromFile(raw fileConfig, meta toml.MetaData) (CodecConfig, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return CodecConfig{}, fmt.Errorf("%w: unknown keys %s", ErrInvalidConfig, strings.Join(keys, ", "))
	}

	cfg := DefaultCodecConfig()
	if meta.IsDefined("scheme") {
		s, err := codec.ParseScheme(strings.TrimSpace(raw.Scheme))
		if err != nil {
			return CodecConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		cfg.Scheme = s
	}
	if meta.IsDefined("compression") {
		c, err := frame.ParseCompression(strings.TrimSpace(raw.Compression))
		if err != nil {
			return CodecConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		cfg.Compression = c
	}
	if meta.IsDefined("limits", "max_string_bytes") {
		cfg.Limits.MaxStringBytes = raw.Limits.MaxStringBytes
	}
	if meta.IsDefined("limits", "max_container_items") {
		cfg.Limits.MaxContainerItems = raw.Limits.MaxContainerItems
	}
	if meta.IsDefined("limits", "max_depth") {
		cfg.Limits.MaxDepth = raw.Limits.MaxDepth
	}
	if meta.IsDefined("limits", "max_frame_bytes") {
		cfg.Frame.MaxPayloadBytes = raw.Limits.MaxFrameBytes
	}
	if meta.IsDefined("limits", "max_frame_entries") {
		cfg.Frame.MaxEntries = raw.Limits.MaxFrameEntries
	}
	for _, c := range raw.Consumers {
		cfg.Consumers = append(cfg.Consumers, ConsumerConfig{
			Name:      strings.TrimSpace(c.Name),
			TypeCodes: c.TypeCodes,
		})
	}
	if meta.IsDefined("schemas", "file") {
		cfg.SchemaFile = strings.TrimSpace(raw.Schemas.File)
	}
	if len(raw.Schemas.TypeCodes) > 0 {
		cfg.SchemaCodes = raw.Schemas.TypeCodes
	}

	if err := ValidateCodecConfig(cfg); err != nil {
		return CodecConfig{}, err
	}
	return cfg, nil
}

func ValidateCodecConfig(cfg CodecConfig) error {
	if cfg.Limits.MaxStringBytes <= 0 {
		return fmt.Errorf("%w: limits.max_string_bytes must be positive", ErrInvalidConfig)
	}
	if cfg.Limits.MaxContainerItems <= 0 {
		return fmt.Errorf("%w: limits.max_container_items must be positive", ErrInvalidConfig)
	}
	if cfg.Limits.MaxDepth <= 0 {
		return fmt.Errorf("%w: limits.max_depth must be positive", ErrInvalidConfig)
	}
	if cfg.Frame.MaxPayloadBytes == 0 || cfg.Frame.MaxEntries == 0 {
		return fmt.Errorf("%w: frame limits must be positive", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(cfg.Consumers))
	for i, c := range cfg.Consumers {
		if c.Name == "" {
			return fmt.Errorf("%w: consumers[%d] missing name", ErrInvalidConfig, i)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: duplicate consumer %q", ErrInvalidConfig, c.Name)
		}
		seen[c.Name] = struct{}{}
		if len(c.TypeCodes) == 0 {
			return fmt.Errorf("%w: consumer %q has no type_codes", ErrInvalidConfig, c.Name)
		}
	}
	if len(cfg.SchemaCodes) > 0 && cfg.SchemaFile == "" {
		return fmt.Errorf("%w: schemas.type_codes without schemas.file", ErrInvalidConfig)
	}
	return nil
}

// Consumer returns the named consumer entry.
func (c CodecConfig) Consumer(name string) (ConsumerConfig, bool) {
	i := slices.IndexFunc(c.Consumers, func(cc ConsumerConfig) bool { return cc.Name == name })
	if i < 0 {
		return ConsumerConfig{}, false
	}
	return c.Consumers[i], true
}

// Scope narrows base to the named consumer's type codes.
func (c CodecConfig) Scope(base registry.Locator, name string) (*registry.Scoped, error) {
	cc, ok := c.Consumer(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown consumer %q", ErrInvalidConfig, name)
	}
	return registry.NewScoped(cc.Name, base, cc.TypeCodes, nil), nil
}

// FactoryOptions carries the scheme and decode limits into a serializer
// factory.
func (c CodecConfig) FactoryOptions(extra ...serializer.Option) []serializer.Option {
	opts := []serializer.Option{
		serializer.WithScheme(c.Scheme),
		serializer.WithLimits(c.Limits),
	}
	return append(opts, extra...)
}
