package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/odvcencio/scs/pkg/object"
	"github.com/odvcencio/scs/pkg/signing"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify that every stored object hashes to its name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			report, err := r.Store.Verify()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ok: verified %d object(s)\n", report.Objects)
			types := make([]string, 0, len(report.ByType))
			for t := range report.ByType {
				types = append(types, string(t))
			}
			slices.Sort(types)
			for _, t := range types {
				fmt.Fprintf(out, "  %-6s %d\n", t, report.ByType[object.ObjectType(t)])
			}
			return nil
		},
	}
}

func newFsckCmd() *cobra.Command {
	var dangling bool

	cmd := &cobra.Command{
		Use:   "fsck",
		Short: "Check object integrity and connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			report, err := r.Fsck()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, h := range report.Missing {
				fmt.Fprintf(out, "missing %s\n", h)
			}
			if dangling {
				for _, h := range report.Dangling {
					fmt.Fprintf(out, "dangling %s\n", h)
				}
			}
			if !report.OK() {
				return fmt.Errorf("fsck: %d missing object(s)", len(report.Missing))
			}
			fmt.Fprintf(out, "ok: %d object(s), %d dangling\n", report.Objects, len(report.Dangling))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dangling, "dangling", false, "list unreachable objects")
	return cmd
}

func newVerifyCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-commit [revision]",
		Short: "Check the SSH signature of a commit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			rev := "HEAD"
			if len(args) == 1 {
				rev = args[0]
			}
			h, err := r.ResolveRevision(rev)
			if err != nil {
				return err
			}
			c, err := r.ReadCommit(h)
			if err != nil {
				return err
			}
			if c.Signature == "" {
				return fmt.Errorf("commit %s is not signed", shortHash(h))
			}
			if _, err := signing.Verify(object.CommitSigningPayload(c), c.Signature); err != nil {
				return fmt.Errorf("commit %s: %w", shortHash(h), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "good signature on %s from %s\n", shortHash(h), signing.Fingerprint(c.Signature))
			return nil
		},
	}
}
