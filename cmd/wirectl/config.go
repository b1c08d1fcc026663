package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/danmuck/tracewire/internal/config"
)

func runConfig(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: config needs init or validate", errUsage)
	}
	switch args[0] {
	case "init":
		var kind, output string
		var force bool
		flagSet := pflag.NewFlagSet("config init", pflag.ContinueOnError)
		flagSet.StringVar(&kind, "kind", "codec", "template kind: codec|collector")
		flagSet.StringVarP(&output, "output", "o", "codec.toml", "output path for the template")
		flagSet.BoolVar(&force, "force", false, "overwrite an existing file")
		if err := flagSet.Parse(args[1:]); err != nil {
			return err
		}
		if err := config.WriteTemplate(output, kind, force); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s config template to %s\n", kind, output)
		return nil
	case "validate":
		var path string
		flagSet := pflag.NewFlagSet("config validate", pflag.ContinueOnError)
		flagSet.StringVarP(&path, "config", "c", "codec.toml", "config path to validate")
		if err := flagSet.Parse(args[1:]); err != nil {
			return err
		}
		cfg, err := loadConfig(path)
		if err != nil {
			return err
		}
		if _, err := buildRegistry(cfg); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "validated %s (scheme=%s compression=%s consumers=%d)\n",
			path, cfg.Scheme, cfg.Compression, len(cfg.Consumers))
		return nil
	default:
		return fmt.Errorf("%w: unknown config command %q", errUsage, args[0])
	}
}
