package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckoutCmd() *cobra.Command {
	var newBranch bool

	cmd := &cobra.Command{
		Use:   "checkout <branch|revision>",
		Short: "Switch branches or detach HEAD at a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]

			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			out := cmd.OutOrStdout()
			if newBranch {
				if err := r.CreateBranch(target); err != nil {
					return err
				}
				if err := r.Switch(target); err != nil {
					return err
				}
				fmt.Fprintf(out, "switched to a new branch '%s'\n", target)
				return nil
			}

			if r.BranchExists(target) {
				if err := r.Switch(target); err != nil {
					return err
				}
				fmt.Fprintf(out, "switched to branch '%s'\n", target)
				return nil
			}
			if err := r.Checkout(target); err != nil {
				return err
			}
			h, err := r.ResolveHead()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "HEAD is now at %s (detached)\n", shortHash(h))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&newBranch, "branch", "b", false, "create the branch at HEAD and switch to it")
	return cmd
}
