package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/llxisdsh/fixedmap/internal/stress"
	"github.com/llxisdsh/fixedmap/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/sugawarayuuta/sonnet"
	"github.com/urfave/cli/v3"
)

func runCommand() *cli.Command {
	defaults := stress.DefaultConfig()
	return &cli.Command{
		Name:  "run",
		Usage: "Run the counter workload and compare it against a mutex-guarded map",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a YAML or JSON config file. FIXEDMAP_* environment variables override it.",
			},
			&cli.IntFlag{
				Name:  "workers",
				Value: defaults.Workers,
				Usage: "Number of concurrent goroutines",
			},
			&cli.IntFlag{
				Name:  "iterations",
				Value: defaults.Iterations,
				Usage: "Increments performed by each goroutine",
			},
			&cli.IntFlag{
				Name:  "keys",
				Value: defaults.Keys,
				Usage: "Number of distinct keys, \"1\" through \"<keys>\"",
			},
			&cli.IntFlag{
				Name:  "increment",
				Value: int(defaults.Increment),
				Usage: "Value added per step",
			},
			&cli.IntFlag{
				Name:  "size",
				Value: defaults.Size,
				Usage: "Slot count of the map",
			},
			&cli.IntFlag{
				Name:  "max-tries",
				Value: defaults.MaxTries,
				Usage: "Probe budget per key",
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "Base seed of the per-goroutine random sources",
			},
			&cli.StringFlag{
				Name:  "hasher",
				Value: defaults.Hasher,
				Usage: "Key hash. One of: fnv, xxhash, xxh3.",
			},
			&cli.StringFlag{
				Name:  "rehash",
				Value: defaults.Rehash,
				Usage: "Collision perturbation. One of: fnv, fnvword, golden.",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Compare keys in addition to hashes",
			},
			&cli.StringFlag{
				Name:  "report",
				Value: "text",
				Usage: "Report format. One of: text, json.",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "Print the map metrics in Prometheus text format after the run",
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	l := loggerFrom(ctx)

	cfg, err := stress.LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg)

	h, err := stress.New(cfg, l)
	if err != nil {
		return err
	}

	rep, runErr := h.Execute(ctx)

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	if err := writeReport(out, cmd.String("report"), rep); err != nil {
		return err
	}

	if cmd.Bool("metrics") {
		reg := prometheus.NewRegistry()
		reg.MustRegister(metrics.NewCollector("", h.Map, prometheus.Labels{"map": "counters"}))
		if err := writeMetrics(out, reg); err != nil {
			return err
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return cli.Exit("interrupted", 130)
		}
		return cli.Exit(fmt.Sprintf("FAILED: %v", runErr), 1)
	}
	return nil
}

// applyFlags overrides cfg with the flags given explicitly on the
// command line, the highest priority source.
func applyFlags(cmd *cli.Command, cfg *stress.Config) {
	if cmd.IsSet("workers") {
		cfg.Workers = cmd.Int("workers")
	}
	if cmd.IsSet("iterations") {
		cfg.Iterations = cmd.Int("iterations")
	}
	if cmd.IsSet("keys") {
		cfg.Keys = cmd.Int("keys")
	}
	if cmd.IsSet("increment") {
		cfg.Increment = int64(cmd.Int("increment"))
	}
	if cmd.IsSet("size") {
		cfg.Size = cmd.Int("size")
	}
	if cmd.IsSet("max-tries") {
		cfg.MaxTries = cmd.Int("max-tries")
	}
	if cmd.IsSet("seed") {
		cfg.Seed = uint64(cmd.Int("seed"))
	}
	if cmd.IsSet("hasher") {
		cfg.Hasher = cmd.String("hasher")
	}
	if cmd.IsSet("rehash") {
		cfg.Rehash = cmd.String("rehash")
	}
	if cmd.IsSet("strict") {
		cfg.Strict = cmd.Bool("strict")
	}
}

func writeReport(w io.Writer, format string, rep *stress.Report) error {
	switch format {
	case "json":
		byt, err := sonnet.Marshal(rep)
		if err != nil {
			return fmt.Errorf("error encoding report: %w", err)
		}
		_, err = fmt.Fprintln(w, string(byt))
		return err
	case "text", "":
		return writeTextReport(w, rep)
	}
	return fmt.Errorf("unknown report format %q", format)
}

func writeTextReport(w io.Writer, rep *stress.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	keys := make([]string, 0, len(rep.FinalCounts))
	for k := range rep.FinalCounts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%d\n", k, rep.FinalCounts[k])
	}
	fmt.Fprintf(tw, "elements\t%d\n", rep.Elements)
	fmt.Fprintf(tw, "total\t%d\n", rep.Total)
	fmt.Fprintf(tw, "exhausted\t%d\n", rep.Exhausted)
	fmt.Fprintf(tw, "max probe\t%d\n", rep.MaxProbe)
	fmt.Fprintf(tw, "elapsed\t%s\n", rep.Elapsed)
	fmt.Fprintf(tw, "ops/sec\t%.0f\n", rep.OpsPerSec)
	for _, m := range rep.Mismatches {
		fmt.Fprintf(tw, "mismatch\t%s\n", m)
	}
	if rep.RunError != "" {
		fmt.Fprintf(tw, "error\t%s\n", rep.RunError)
	}
	if rep.Passed {
		fmt.Fprintln(tw, "result\tPASSED")
	} else {
		fmt.Fprintln(tw, "result\tFAILED")
	}
	return tw.Flush()
}

func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("error gathering metrics: %w", err)
	}
	encoder := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return fmt.Errorf("error encoding metrics: %w", err)
		}
	}
	return nil
}
