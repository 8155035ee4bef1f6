package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/scs/pkg/repo"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show working tree status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			entries, err := r.Status()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			branch, err := r.CurrentBranch()
			if err != nil {
				return err
			}
			head, err := r.ResolveHead()
			if err != nil {
				return err
			}
			switch {
			case branch == "":
				fmt.Fprintf(out, "HEAD detached at %s\n", shortHash(head))
			case head == "":
				fmt.Fprintf(out, "on %s (no commits yet)\n", branch)
			default:
				fmt.Fprintf(out, "on %s\n", branch)
			}
			if inProgress, err := r.MergeInProgress(); err == nil && inProgress {
				fmt.Fprintln(out, "merge in progress: fix conflicts, stage them and run scs commit (or scs merge --abort)")
			}

			var conflicts, staged, unstaged, untracked []string
			for _, e := range entries {
				if e.IndexStatus == repo.StatusConflict {
					conflicts = append(conflicts, "  ! "+e.Path)
					continue
				}
				switch e.IndexStatus {
				case repo.StatusNew:
					staged = append(staged, "  + "+e.Path)
				case repo.StatusModified:
					staged = append(staged, "  ~ "+e.Path)
				case repo.StatusDeleted:
					staged = append(staged, "  - "+e.Path)
				case repo.StatusUntracked:
					untracked = append(untracked, "  "+e.Path)
					continue
				}
				switch e.WorkStatus {
				case repo.StatusDirty:
					unstaged = append(unstaged, "  ~ "+e.Path)
				case repo.StatusDeleted:
					unstaged = append(unstaged, "  - "+e.Path)
				}
			}

			printSection(cmd, "conflicts:", conflicts)
			printSection(cmd, "staged:", staged)
			printSection(cmd, "unstaged:", unstaged)
			printSection(cmd, "untracked:", untracked)
			return nil
		},
	}
}

func printSection(cmd *cobra.Command, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, title)
	for _, l := range lines {
		fmt.Fprintln(out, l)
	}
}
