package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
	apperrors "github.com/olusolaa/sandbox-differ/internal/errors"
)

// stdinIsTerminal is swapped in tests.
var stdinIsTerminal = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newBaselineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Create, list and remove stored baselines",
	}
	cmd.AddCommand(newBaselineCreateCmd(), newBaselineListCmd(), newBaselineRemoveCmd())
	return cmd
}

func newBaselineCreateCmd() *cobra.Command {
	var (
		target string
		source string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Capture the target's current storage tree as its baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApplication(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			t := domain.Target(target)

			overwrite := force
			if !force && stdinIsTerminal() {
				exists, err := application.Engine.HasBaseline(ctx, t)
				if err != nil {
					return err
				}
				if exists {
					ok, err := confirmOverwrite(cmd.InOrStdin(), cmd.ErrOrStderr(), t)
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), "Keeping the existing baseline.")
						return nil
					}
					overwrite = true
				}
			}

			baseline, err := application.CreateBaseline(ctx, t, source, overwrite)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Baseline for %s captured: %d files at %s\n",
				baseline.Target, len(baseline.Fingerprints), baseline.Metadata.CreatedAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "Application whose storage is captured")
	cmd.Flags().StringVar(&source, "source", "", "Storage path to read instead of the configured source template")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing baseline without asking")
	cmd.MarkFlagRequired("target")
	return cmd
}

// confirmOverwrite asks before an existing baseline is replaced. Anything but
// an explicit yes keeps it.
func confirmOverwrite(in io.Reader, out io.Writer, target domain.Target) (bool, error) {
	fmt.Fprintf(out, "A baseline for %s already exists. Overwrite? [y/N] ", target)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, apperrors.Wrap(err, apperrors.CodeIO, "reading confirmation")
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func newBaselineListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored baselines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApplication(cmd)
			if err != nil {
				return err
			}
			return printBaselines(cmd.OutOrStdout(), cmd.ErrOrStderr(), application.Engine.ListBaselines(cmd.Context()))
		},
	}
}

// printBaselines writes one row per readable baseline. Unreadable entries are
// reported on errOut and do not stop the listing.
func printBaselines(out, errOut io.Writer, entries iter.Seq2[domain.BaselineSummary, error]) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	rows := 0
	for summary, err := range entries {
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			msg, _, ok := apperrors.GetUserFacingMessage(err)
			if !ok {
				msg = err.Error()
			}
			fmt.Fprintf(errOut, "WARNING: %s\n", msg)
			continue
		}
		if rows == 0 {
			fmt.Fprintln(tw, "TARGET\tCREATED\tDEVICE\tOS VERSION\tTARGET VERSION")
		}
		rows++
		env := summary.Metadata.Environment
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			summary.Target,
			summary.Metadata.CreatedAt.UTC().Format(time.RFC3339),
			env[domain.KeyDevice], env[domain.KeyOSVersion], env[domain.KeyTargetVersion])
	}
	if rows == 0 {
		fmt.Fprintln(out, "No baselines stored.")
		return nil
	}
	return tw.Flush()
}

func newBaselineRemoveCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Delete the stored baseline of a target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApplication(cmd)
			if err != nil {
				return err
			}
			if err := application.Engine.RemoveBaseline(cmd.Context(), domain.Target(target)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Baseline for %s removed.\n", target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "Application whose baseline is removed")
	cmd.MarkFlagRequired("target")
	return cmd
}
