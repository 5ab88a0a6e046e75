// Command msgstored runs the priority-ordered, byte-budgeted message
// store described in SPEC_FULL.md.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "msgstored",
		Short: "A priority-ordered, byte-budgeted message store",
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newValidateConfigCmd())
	return root
}
