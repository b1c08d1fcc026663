package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/danmuck/tracewire/internal/observability"
)

var errUsage = errors.New("usage")

const usage = `wirectl inspects and produces tracewire envelope batches.

Commands:
  sample   write a batch of sample envelopes
  decode   read batches and print every decoded message
  config   init or validate a codec config file

Run "wirectl <command> --help" for command flags.
`

func main() {
	observability.InitLogger("wirectl")
	err := run(os.Args[1:], os.Stdin, os.Stdout)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		log.Fatal().Err(err).Msg("wirectl failed")
	}
}

func run(args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	switch args[0] {
	case "sample":
		return runSample(args[1:], out)
	case "decode":
		return runDecode(args[1:], in, out)
	case "config":
		return runConfig(args[1:], out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}
