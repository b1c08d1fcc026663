package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/danmuck/tracewire/internal/observability"
	"github.com/danmuck/tracewire/internal/protocol/bridge"
	"github.com/danmuck/tracewire/internal/protocol/dto"
	"github.com/danmuck/tracewire/internal/protocol/frame"
	"github.com/danmuck/tracewire/internal/protocol/serializer"
)

func runDecode(args []string, stdin io.Reader, stdout io.Writer) error {
	var (
		configPath  string
		inPath      string
		consumer    string
		showMetrics bool
		showResults bool
	)
	flagSet := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "codec config file (defaults apply when empty)")
	flagSet.StringVarP(&inPath, "in", "i", "-", "input file, - for stdin")
	flagSet.StringVar(&consumer, "consumer", "", "decode through the named consumer scope")
	flagSet.BoolVar(&showMetrics, "metrics", false, "print codec metric families after decoding")
	flagSet.BoolVar(&showResults, "results", false, "bridge Result envelopes and print their outcome")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	f, err := newFactory(cfg, consumer)
	if err != nil {
		return err
	}

	r := stdin
	if inPath != "-" {
		file, err := os.Open(inPath)
		if err != nil {
			return err
		}
		defer file.Close()
		r = file
	}

	var results bridge.Bridge
	if showResults {
		results = newResultBridge(f)
	}
	frames, decoded, skipped := 0, 0, 0
	for {
		fr, err := frame.ReadFrame(r, cfg.Frame)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("frame %d: %w", frames, err)
		}
		res, err := f.CreateDeserializer().DecodeBatch(fr)
		if err != nil {
			return fmt.Errorf("frame %d: %w", frames, err)
		}
		observability.RecordBatch(res)
		for _, msg := range res.Messages {
			st := msg.Struct()
			fmt.Fprintf(stdout, "%d\t%s\n", st.Schema().TypeCode(), st.Describe())
		}
		if results != nil {
			if err := printResults(stdout, results, f, fr); err != nil {
				return fmt.Errorf("frame %d: %w", frames, err)
			}
		}
		frames++
		decoded += len(res.Messages)
		skipped += len(res.Skipped)
	}
	log.Info().
		Int("frames", frames).
		Int("decoded", decoded).
		Int("skipped", skipped).
		Str("registry", f.Locator().Name()).
		Msg("decode finished")

	if showMetrics {
		return printMetrics(stdout)
	}
	return nil
}

// printResults passes every Result entry the factory knows through b as a
// legacy response.
func printResults(w io.Writer, b bridge.Bridge, f *serializer.Factory, fr frame.Frame) error {
	for _, entry := range fr.Entries {
		h, _, err := frame.DecodeEnvelopeHeader(entry)
		if err != nil || h.TypeCode != dto.TypeResult {
			continue
		}
		if _, ok := f.Locator().Lookup(h.TypeCode); !ok {
			continue
		}
		res, ok, err := b.Bridge(bridge.LegacyResponse{Payload: entry})
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(w, "result\t%t\t%s\n", res.IsSuccess(), res.Message())
		}
	}
	return nil
}

func printMetrics(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(families))
	series := make(map[string]int, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
		series[mf.GetName()] = len(mf.GetMetric())
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(w, "# %s series=%d\n", name, series[name])
	}
	return nil
}
