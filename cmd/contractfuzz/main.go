// Command contractfuzz runs property-based fuzzing campaigns against a
// WASM smart contract bundle: it wires bundle loading, configuration, the
// execution engine, and an output sink into a runnable binary.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("contractfuzz failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
