package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "machine",
		Short:         "Host a tick-driven sandboxed Lua machine",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRunCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
