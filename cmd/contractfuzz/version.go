package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped at release time; left as a placeholder for local
// builds.
const version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the contractfuzz version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("contractfuzz %s\n", version)
		return nil
	},
}
