package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/OJezu/potok/pkg/potok"
	"github.com/OJezu/potok/pkg/potok/each"
	"github.com/OJezu/potok/pkg/potok/metrics"
	"github.com/OJezu/potok/pkg/potok/stream"
)

var transforms = map[string]func(string) string{
	"":      func(s string) string { return s },
	"none":  func(s string) string { return s },
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"trim":  strings.TrimSpace,
}

type pipelineConfig struct {
	Transform string
	Options   potok.Options
	Metrics   io.Writer // nil disables the metrics dump
}

type pipelineStats struct {
	Read    int
	Written int
	Failed  int
}

// runPipeline reads lines from in, transforms them and writes the non-blank
// ones to out in input order. Blank lines become nulls.
func runPipeline(ctx context.Context, cfg pipelineConfig, in io.Reader, out io.Writer, logger *slog.Logger) (pipelineStats, error) {
	var stats pipelineStats

	transform, ok := transforms[cfg.Transform]
	if !ok {
		return stats, fmt.Errorf("%w: unknown transform %q", potok.ErrConfiguration, cfg.Transform)
	}

	opts := append(cfg.Options.Apply(), potok.WithLogger(logger))
	var reg *prometheus.Registry
	if cfg.Metrics != nil {
		reg = prometheus.NewRegistry()
		collector, err := metrics.NewCollector(reg, "potok")
		if err != nil {
			return stats, err
		}
		opts = append(opts, potok.WithObserver(collector))
	}

	node, err := potok.New(ctx, potok.Handlers[string]{
		EachFulfilled: each.Steps(
			each.Map(func(_ context.Context, line string) string { return transform(line) }),
			each.Filter(func(_ context.Context, line string) bool { return strings.TrimSpace(line) != "" }),
		),
	}, opts...)
	if err != nil {
		return stats, err
	}

	sink := stream.NewLineSink[string](ctx, out, func(_ context.Context, err error) {
		stats.Failed++
		logger.Warn("line failed", "err", err)
	})
	if _, err := potok.Pipe(node, sink); err != nil {
		return stats, err
	}

	stats.Read, err = stream.FromReader(ctx, node, in)
	if err != nil {
		return stats, err
	}

	if _, err := node.Wait(ctx); err != nil {
		return stats, err
	}
	stats.Written, err = sink.Wait(ctx)
	if err != nil {
		return stats, err
	}
	logger.Info("pipeline finished", "read", stats.Read, "written", stats.Written, "failed", stats.Failed)

	if reg != nil {
		if err := dumpMetrics(reg, cfg.Metrics); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func dumpMetrics(g prometheus.Gatherer, w io.Writer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
