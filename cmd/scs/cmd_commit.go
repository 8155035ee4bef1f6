package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odvcencio/scs/pkg/repo"
	"github.com/odvcencio/scs/pkg/signing"
)

func newCommitCmd() *cobra.Command {
	var message string
	var author string
	var sign bool
	var keyPath string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record changes to the repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			if strings.TrimSpace(message) == "" && r.MergeMessage() == "" {
				return fmt.Errorf("commit message is required (-m)")
			}

			var signer repo.CommitSigner
			if sign || keyPath != "" {
				if keyPath == "" {
					if cfg, err := r.ReadConfig(); err == nil {
						keyPath = cfg.Signing.Key
					}
				}
				s, _, err := signing.NewSSHSigner(keyPath)
				if err != nil {
					return err
				}
				signer = repo.CommitSigner(s)
			}

			h, err := r.CommitWithSigner(message, author, signer)
			if err != nil {
				return err
			}

			branch, err := r.CurrentBranch()
			if err != nil || branch == "" {
				branch = "detached HEAD"
			}
			c, err := r.ReadCommit(h)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", branch, shortHash(h), firstLine(c.Message))
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().StringVar(&author, "author", "", "override author (default: user.name from config, then $USER)")
	cmd.Flags().BoolVarP(&sign, "sign", "S", false, "sign the commit with an SSH key")
	cmd.Flags().StringVar(&keyPath, "key", "", "SSH private key used with --sign (default: signing.key, then ~/.ssh)")
	return cmd
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
