package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odvcencio/scs/pkg/repo"
)

func newCloneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clone <source> [destination]",
		Short: "Copy a repository into a new directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			dst := filepath.Base(strings.TrimRight(filepath.Clean(src), string(filepath.Separator)))
			if len(args) == 2 {
				dst = args[1]
			}

			r, err := repo.Clone(src, dst)
			if err != nil {
				return err
			}
			defer r.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "cloned %s into %s\n", src, r.RootDir)
			return nil
		},
	}
}
