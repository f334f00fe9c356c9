package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nettrace/capio"
)

func newCatCmd() *cobra.Command {
	var bufferSize int

	cmd := &cobra.Command{
		Use:   "cat <file>",
		Short: "Write a file's decoded contents to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []capio.Option
			if bufferSize > 0 {
				opts = append(opts, capio.WithBufferSize(bufferSize))
			}
			r, err := capio.Open(args[0], opts...)
			if err != nil {
				return err
			}
			defer r.Close()

			if _, err := io.Copy(os.Stdout, r); err != nil {
				return err
			}
			if r.Error() != nil {
				return r.Error()
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&bufferSize, "buffer-size", 0, "input buffer size override in bytes")
	return cmd
}
