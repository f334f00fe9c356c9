// Command capio is a small inspection tool built on top of
// the capio package: it can dump a capture file's decoded contents, print
// its detected format and size, seek to an offset and read from there, and
// export or import a fast-seek index.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "capio",
		Short:         "Inspect auto-detecting compressed capture streams",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newCatCmd(),
		newStatCmd(),
		newSeekCmd(),
		newIndexCmd(),
	)
	return root
}
