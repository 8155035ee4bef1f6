package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/scs/pkg/repo"
)

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <paths...>",
		Short: "Stage files for the next commit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			results, err := r.Add(args)
			if err != nil {
				return err
			}

			out := cmd.ErrOrStderr()
			failed := 0
			for _, res := range results {
				switch res.Status {
				case repo.StageIgnored:
					fmt.Fprintf(out, "ignored: %s\n", res.Path)
				case repo.StageMissing, repo.StageInvalid:
					failed++
					fmt.Fprintf(out, "error: %v\n", res.Err)
				}
			}
			if failed > 0 {
				return fmt.Errorf("add: %d path(s) could not be staged", failed)
			}
			return nil
		},
	}
}
