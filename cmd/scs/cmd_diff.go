package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/scs/pkg/diff"
)

func newDiffCmd() *cobra.Command {
	var staged bool
	var nameOnly bool

	cmd := &cobra.Command{
		Use:   "diff [<from> <to>]",
		Short: "Show changes between the working tree, the index and commits",
		Long: "Without arguments, show unstaged changes (working tree vs index).\n" +
			"With --staged, show changes staged for the next commit (index vs HEAD).\n" +
			"With two revisions, compare their trees.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("diff takes no revisions or exactly two")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			var diffs []diff.FileDiff
			switch {
			case len(args) == 2:
				from, err := r.ResolveRevision(args[0])
				if err != nil {
					return err
				}
				to, err := r.ResolveRevision(args[1])
				if err != nil {
					return err
				}
				diffs, err = r.DiffCommits(from, to)
				if err != nil {
					return err
				}
			case staged:
				diffs, err = r.DiffStaged()
			default:
				diffs, err = r.DiffWorkTree()
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i := range diffs {
				if nameOnly {
					fmt.Fprintf(out, "%s\t%s\n", diffs[i].Type, diffs[i].Path)
					continue
				}
				fmt.Fprint(out, diff.Format(&diffs[i]))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&staged, "staged", false, "compare the index with HEAD")
	cmd.Flags().BoolVar(&nameOnly, "name-status", false, "list changed paths with their change type only")
	return cmd
}
