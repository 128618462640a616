package main

import (
	"github.com/spf13/cobra"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
)

func newCompareCmd() *cobra.Command {
	var (
		target string
		source string
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the target's current storage tree against its baseline",
		Long: `Compare captures the target's storage tree, reconciles it against the stored
baseline and writes a report to every enabled sink. Finding changes is not an
error: the command exits 0 whenever the report was produced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApplication(cmd)
			if err != nil {
				return err
			}
			_, err = application.Compare(cmd.Context(), domain.Target(target), source)
			return err
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "Application whose storage is compared")
	cmd.Flags().StringVar(&source, "source", "", "Storage path to read instead of the configured source template")
	cmd.MarkFlagRequired("target")
	return cmd
}
