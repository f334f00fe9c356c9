package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nettrace/capio"
	"github.com/nettrace/capio/internal/seekindex"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build, inspect, or export a fast-seek checkpoint index",
	}
	cmd.AddCommand(newIndexExportCmd(), newIndexShowCmd())
	return cmd
}

func newIndexExportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Decode a file end-to-end, accumulating checkpoints, then write the index out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return fmt.Errorf("--out is required")
			}

			idx := seekindex.New()
			r, err := capio.Open(args[0], capio.WithIndex(idx))
			if err != nil {
				return err
			}
			defer r.Close()

			if _, err := io.Copy(io.Discard, r); err != nil && err != io.EOF {
				return err
			}
			if r.Error() != nil {
				return r.Error()
			}

			out, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer out.Close()

			n, err := idx.WriteTo(out)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "wrote %d checkpoints (%d bytes) to %s\n", idx.Len(), n, outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "path to write the serialized index to")
	return cmd
}

func newIndexShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <index-file>",
		Short: "Print the checkpoints contained in a previously exported index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := loadIndex(args[0])
			if err != nil {
				return err
			}
			for i, cp := range idx.Snapshot() {
				fmt.Printf("%4d  in=%-12d out=%-12d mode=%-20v bits=%d window=%dB\n",
					i, cp.InOffset, cp.OutOffset, cp.Mode, cp.Bits, len(cp.Window))
			}
			return nil
		},
	}
	return cmd
}

func loadIndex(path string) (*seekindex.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return seekindex.LoadIndex(f)
}
