// Package main provides the sdca training CLI.
package main

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/linear-ml/sdca"
	"github.com/linear-ml/sdca/internal/dataset"
	"github.com/linear-ml/sdca/internal/metrics"
)

const version = "v0.1.0-dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("training failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("sdca", pflag.ContinueOnError)
	flags.String("data", "", "training data in LibSVM format (required)")
	flags.String("loss", "logistic", "loss function: logistic, squared, hinge, smooth_hinge")
	flags.Float64("l1", 0, "symmetric L1 regularization strength")
	flags.Float64("l2", 1, "symmetric L2 regularization strength")
	flags.Int("shards", 1, "dual store shard count")
	flags.Int("partitions", 1, "concurrent training partitions per pass")
	flags.Int("max-passes", 100, "maximum training passes")
	flags.Float64("gap-target", 0.01, "stop once |duality gap| falls below this")
	flags.String("metrics-addr", "", "optional address for a Prometheus /metrics listener")
	flags.String("log-file", "", "optional rotating log file (stderr otherwise)")
	flags.String("config", "", "optional YAML config file")
	showVersion := flags.Bool("version", false, "print version and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Printf("sdca %s\n", version)
		return nil
	}

	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	v.SetEnvPrefix("SDCA")
	v.AutomaticEnv()
	if cfg := v.GetString("config"); cfg != "" {
		v.SetConfigFile(cfg)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	logger := newLogger(v.GetString("log-file"))
	slog.SetDefault(logger)

	dataPath := v.GetString("data")
	if dataPath == "" {
		return fmt.Errorf("--data is required")
	}
	kind, err := sdca.ParseLossKind(v.GetString("loss"))
	if err != nil {
		return err
	}

	examples, numFeatures, err := dataset.LoadLibSVM(dataPath)
	if err != nil {
		return err
	}
	if kind != sdca.Squared {
		dataset.NormalizeBinaryLabels(examples)
	}
	logger.Info("loaded training data",
		"path", dataPath,
		"examples", len(examples),
		"features", numFeatures,
		"loss", kind.String(),
	)

	model, err := sdca.New(examples, sdca.Variables{
		SparseWeights: [][]float64{make([]float64, numFeatures)},
	}, sdca.Options{
		Loss:          kind,
		L1:            v.GetFloat64("l1"),
		L2:            v.GetFloat64("l2"),
		NumShards:     v.GetInt("shards"),
		NumPartitions: v.GetInt("partitions"),
	})
	if err != nil {
		return err
	}

	m := metrics.New()
	if addr := v.GetString("metrics-addr"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("metrics listener failed", "addr", addr, "error", err)
			}
		}()
		logger.Info("serving metrics", "addr", addr)
	}

	gapTarget := v.GetFloat64("gap-target")
	maxPasses := v.GetInt("max-passes")
	for pass := 1; pass <= maxPasses; pass++ {
		start := time.Now()
		if err := model.Minimize(); err != nil {
			return err
		}
		gap := model.ApproximateDualityGap()
		m.ObservePass(len(examples), gap, time.Since(start))
		logger.Info("pass complete", "pass", pass, "duality_gap", gap)
		if math.Abs(gap) <= gapTarget {
			logger.Info("converged", "pass", pass, "duality_gap", gap)
			break
		}
	}

	unreg, err := model.UnregularizedLoss(examples)
	if err != nil {
		return err
	}
	reg, err := model.RegularizedLoss(examples)
	if err != nil {
		return err
	}
	logger.Info("training finished",
		"unregularized_loss", unreg,
		"regularized_loss", reg,
		"duality_gap", model.ApproximateDualityGap(),
		"duals", model.Store().Size(),
	)
	return nil
}

func newLogger(logFile string) *slog.Logger {
	if logFile == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewJSONHandler(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}, nil))
}
