package main

import (
	"fmt"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/nettrace/capio"
)

func newStatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stat <file>",
		Short: "Print the detected compression format and raw file size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := capio.Open(args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			// Force detection by peeking a byte; an empty file is not an error.
			r.PeekByte()
			if err := r.Error(); err != nil {
				return err
			}

			info, err := r.Fstat()
			if err != nil {
				return err
			}

			fmt.Printf("format:      %s\n", r.CompressionType().Description())
			fmt.Printf("compressed:  %v\n", r.IsCompressed())
			fmt.Printf("raw size:    %s (%d bytes)\n", units.HumanSize(float64(info.Size())), info.Size())
			return nil
		},
	}
	return cmd
}
