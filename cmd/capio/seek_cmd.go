package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nettrace/capio"
)

func newSeekCmd() *cobra.Command {
	var offset int64
	var length int64
	var indexPath string

	cmd := &cobra.Command{
		Use:   "seek <file>",
		Short: "Seek to a logical offset and dump the bytes that follow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []capio.Option
			if indexPath != "" {
				idx, err := loadIndex(indexPath)
				if err != nil {
					return err
				}
				opts = append(opts, capio.WithIndex(idx))
			}

			r, err := capio.Open(args[0], opts...)
			if err != nil {
				return err
			}
			defer r.Close()

			if _, serr := r.Seek(offset, io.SeekStart); serr != nil {
				return serr
			}

			var n int64
			var err2 error
			if length > 0 {
				n, err2 = io.CopyN(os.Stdout, r, length)
			} else {
				n, err2 = io.Copy(os.Stdout, r)
			}
			if err2 != nil && err2 != io.EOF {
				return err2
			}
			fmt.Fprintf(os.Stderr, "wrote %s from logical offset %d\n", humanize.Bytes(uint64(n)), offset)
			return nil
		},
	}
	cmd.Flags().Int64Var(&offset, "offset", 0, "logical (uncompressed) byte offset to seek to")
	cmd.Flags().Int64Var(&length, "length", 0, "maximum bytes to dump (0 = until EOF)")
	cmd.Flags().StringVar(&indexPath, "index", "", "fast-seek index file to load before seeking")
	return cmd
}
