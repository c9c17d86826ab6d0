package main

import (
	"github.com/spf13/cobra"
)

var (
	flagBundlePath string
	flagEnv        string
)

var rootCmd = &cobra.Command{
	Use:   "contractfuzz",
	Short: "Property-based fuzzer for WASM smart contract bundles",
	Long: `contractfuzz searches for sequences of transactions (one deployment
followed by zero or more messages) that either trap a contract or drive
its state into a configuration where one of its declared property
methods returns false.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBundlePath, "bundle", "", "path to the contract metadata bundle (required)")
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", "", "configuration overlay to merge over default.yaml")
	rootCmd.AddCommand(runCmd, replayCmd, versionCmd)
}
