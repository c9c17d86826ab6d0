package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"contractfuzz/internal/engine"
	"contractfuzz/internal/output"
	"contractfuzz/internal/sandbox"
	"contractfuzz/internal/trace"
	"contractfuzz/pkg/bundle"
	"contractfuzz/pkg/config"
	"contractfuzz/pkg/utils"
)

var flagUseTUI bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a fuzzing campaign against a bundle",
	RunE:  runCampaign,
}

func init() {
	runCmd.Flags().BoolVar(&flagUseTUI, "tui", false, "use the terminal status sink instead of the console logger")
}

func runCampaign(cmd *cobra.Command, args []string) error {
	if flagBundlePath == "" {
		return fmt.Errorf("--bundle is required")
	}

	b, err := bundle.Load(flagBundlePath)
	if err != nil {
		return utils.Wrap(err, "load bundle")
	}

	cfg, err := config.Load(flagEnv)
	if err != nil {
		return utils.Wrap(err, "load configuration")
	}

	accounts := make([]trace.AccountId, len(cfg.Accounts))
	for i, a := range cfg.Accounts {
		acc, err := bundle.ParseAccount(a)
		if err != nil {
			return utils.Wrap(err, fmt.Sprintf("configured account %d", i))
		}
		accounts[i] = acc
	}

	engCfg := engine.Config{
		Seed:                    cfg.Seed,
		FailFast:                cfg.FailFast,
		MaxRounds:               cfg.MaxRounds,
		Budget:                  cfg.Budget,
		Accounts:                accounts,
		OnlyMutable:             cfg.OnlyMutable,
		MaxSequenceTypeSize:     cfg.MaxSequenceTypeSize,
		MaxNumberOfTransactions: cfg.MaxNumberOfTransactions,
		MaxOptimizationRounds:   cfg.MaxOptimizationRounds,
		GasLimit:                cfg.GasLimit,
		PropertyPrefix:          cfg.PropertyPrefix,
		FuzzPropertyMaxRounds:   cfg.FuzzPropertyMaxRounds,
		SnapshotCacheCapacity:   cfg.SnapshotCacheCapacity,
	}

	hf := sandbox.ParseHashFunction(b.HashFunctionID)
	newSandbox := func() sandbox.Sandbox { return sandbox.NewWasmerSandbox(hf) }

	e, err := engine.New(b, engCfg, newSandbox)
	if err != nil {
		return utils.Wrap(err, "build engine")
	}

	useTUI := flagUseTUI || cfg.UseTUI
	var sink output.Sink
	if useTUI {
		sink = output.NewTUISink(os.Stdout)
	} else {
		sink = output.NewConsoleSink(os.Stdout, b.Registry, e.Catalog())
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	done := make(chan struct{})
	go func() {
		output.Poll(ctx, e.Campaign(), sink, 100*time.Millisecond)
		close(done)
	}()

	runErr := e.Run(ctx)
	cancel()
	<-done
	return runErr
}
