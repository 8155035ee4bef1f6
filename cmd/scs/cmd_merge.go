package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/odvcencio/scs/pkg/object"
	"github.com/odvcencio/scs/pkg/repo"
)

func newMergeCmd() *cobra.Command {
	var abort bool
	var noFF bool
	var message string
	var author string

	cmd := &cobra.Command{
		Use:   "merge <branch>",
		Short: "Merge a branch into the current branch",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			out := cmd.OutOrStdout()
			if abort {
				if err := r.AbortMerge(); err != nil {
					return err
				}
				fmt.Fprintln(out, "merge aborted")
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("merge requires a branch name")
			}
			branchName := args[0]

			current, err := r.CurrentBranch()
			if err != nil {
				return err
			}
			if current == "" {
				current = "HEAD"
			}
			fmt.Fprintf(out, "merging %s into %s...\n", branchName, current)

			res, err := r.Merge(branchName, repo.MergeOptions{
				NoFastForward: noFF,
				Message:       message,
				Author:        author,
			})
			if err != nil {
				return err
			}

			switch res.Status {
			case repo.MergeFastForward:
				fmt.Fprintf(out, "fast-forward %s..%s\n", shortHash(res.Ours), shortHash(res.Theirs))
			case repo.MergeClean:
				fmt.Fprintln(out, "merge completed cleanly")
				fmt.Fprintf(out, "[%s %s] merge base %s\n", current, shortHash(res.Commit), shortHash(res.Base))
			case repo.MergeConflicted:
				printConflicts(out, res.Conflicts)
				fmt.Fprintf(out, "merge stopped with %d conflict", len(res.Conflicts))
				if len(res.Conflicts) != 1 {
					fmt.Fprint(out, "s")
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, "fix conflicts, stage the results and run scs commit")
				return res.Err()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&abort, "abort", false, "abandon a conflicted merge and restore HEAD")
	cmd.Flags().BoolVar(&noFF, "no-ff", false, "create a merge commit even when a fast-forward is possible")
	cmd.Flags().StringVarP(&message, "message", "m", "", "merge commit message")
	cmd.Flags().StringVar(&author, "author", "", "override author")
	return cmd
}

// printConflicts lists each conflict with its base, ours and theirs blobs;
// "-" marks a side where the path is absent.
func printConflicts(out io.Writer, conflicts []repo.Conflict) {
	for _, c := range conflicts {
		fmt.Fprintf(out, "  %s: CONFLICT (%s) base %s ours %s theirs %s\n",
			c.Path, conflictKind(c), conflictSide(c.Base), conflictSide(c.Ours), conflictSide(c.Theirs))
	}
}

func conflictSide(h object.Hash) string {
	if h == "" {
		return "-"
	}
	return shortHash(h)
}

func conflictKind(c repo.Conflict) string {
	switch {
	case c.Base == "" && c.Ours != "" && c.Theirs != "":
		return "add/add"
	case c.Ours == "":
		return "deleted in ours, modified in theirs"
	case c.Theirs == "":
		return "modified in ours, deleted in theirs"
	default:
		return "content"
	}
}
