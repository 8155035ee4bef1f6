package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/odvcencio/scs/pkg/repo"
)

func newInitCmd() *cobra.Command {
	var branch string
	var commitGraph bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create an empty scs repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			if err := os.MkdirAll(abs, 0o755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}

			cfg := repo.DefaultConfig()
			if branch != "" {
				cfg.Core.DefaultBranch = branch
			}
			cfg.Core.CommitGraph = commitGraph

			r, err := repo.InitWithConfig(abs, cfg)
			if err != nil {
				return err
			}
			defer r.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "initialized empty scs repository in %s\n", filepath.Join(r.RootDir, repo.MarkerDir)+string(filepath.Separator))
			return nil
		},
	}

	cmd.Flags().StringVarP(&branch, "initial-branch", "b", "", "name of the initial branch (default: main)")
	cmd.Flags().BoolVar(&commitGraph, "commit-graph", false, "persist the commit graph cache on disk")
	return cmd
}
