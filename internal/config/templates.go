package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "codec":
		return codecTemplate, nil
	case "collector":
		return collectorTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const codecTemplate = `scheme = "tag"
compression = "none"

[limits]
max_string_bytes = 16777216
max_container_items = 1048576
max_depth = 64
max_frame_bytes = 67108864
max_frame_entries = 1048576
`

const collectorTemplate = `scheme = "compact"
compression = "zstd"

[limits]
max_string_bytes = 1048576
max_depth = 32

[[consumers]]
name = "flink"
type_codes = [1000, 1003]

[[consumers]]
name = "metadata"
type_codes = [300, 310, 330]
`
