package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odvcencio/scs/pkg/object"
	"github.com/odvcencio/scs/pkg/repo"
)

func newCatFileCmd() *cobra.Command {
	var pretty, showType, showSize bool

	cmd := &cobra.Command{
		Use:   "cat-file (-p | -t | -s) <object | revision:path>",
		Short: "Print the content, type or size of a stored object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !pretty && !showType && !showSize {
				return fmt.Errorf("cat-file: one of -p, -t or -s is required")
			}
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			h, err := resolveObject(r, args[0])
			if err != nil {
				return err
			}
			objType, data, err := r.Store.Read(h)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case showType:
				fmt.Fprintln(out, objType)
			case showSize:
				fmt.Fprintln(out, len(data))
			default:
				return prettyPrint(out, objType, data)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "pretty-print the object content")
	cmd.Flags().BoolVarP(&showType, "type", "t", false, "print the object type")
	cmd.Flags().BoolVarP(&showSize, "size", "s", false, "print the content size in bytes")
	return cmd
}

// resolveObject accepts a revision, an abbreviated hash, or
// "<revision>:<path>" naming a blob in that revision's tree.
func resolveObject(r *repo.Repo, arg string) (object.Hash, error) {
	if rev, p, ok := strings.Cut(arg, ":"); ok {
		e, err := r.FileAt(rev, p)
		if err != nil {
			return "", err
		}
		return e.BlobHash, nil
	}
	h, err := r.ResolveRevision(arg)
	if err != nil {
		return "", err
	}
	if h == "" {
		return "", fmt.Errorf("%s: %w", arg, repo.ErrUnbornBranch)
	}
	return h, nil
}

func prettyPrint(out io.Writer, objType object.ObjectType, data []byte) error {
	switch objType {
	case object.TypeTree:
		tr, err := object.UnmarshalTree(data)
		if err != nil {
			return err
		}
		for _, e := range tr.Entries {
			fmt.Fprintf(out, "%s blob %s\t%s\n", e.Mode, e.BlobHash, e.Path)
		}
		return nil
	default:
		_, err := out.Write(data)
		return err
	}
}

func newHashObjectCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "hash-object <file>",
		Short: "Compute the blob hash of a file, optionally storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			h := object.HashObject(object.TypeBlob, data)
			if write {
				r, err := openRepo()
				if err != nil {
					return err
				}
				defer r.Close()
				if h, err = r.Store.WriteBlob(&object.Blob{Data: data}); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the blob into the object store")
	return cmd
}

func newLsTreeCmd() *cobra.Command {
	var nameOnly bool

	cmd := &cobra.Command{
		Use:   "ls-tree [revision]",
		Short: "List the entries of a commit's tree",
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
			h, err := resolveObject(r, rev)
			if err != nil {
				return err
			}
			objType, _, err := r.Store.Read(h)
			if err != nil {
				return err
			}
			if objType == object.TypeCommit {
				if h, err = r.TreeOf(h); err != nil {
					return err
				}
			}
			entries, err := r.ReadTreeEntries(h)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				if nameOnly {
					fmt.Fprintln(out, e.Path)
				} else {
					fmt.Fprintf(out, "%s blob %s\t%s\n", e.Mode, e.BlobHash, e.Path)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&nameOnly, "name-only", false, "list only paths")
	return cmd
}

func newWriteTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write-tree",
		Short: "Write the index as a tree object and print its hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			h, err := r.BuildTree()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}
