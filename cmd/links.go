package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/page-archiver/internal/archive"
	"github.com/JakeFAU/page-archiver/internal/autoarchive"
)

func newSubmitURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit-url URL",
		Short: "Prints the archive-service submission address for URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := resolveEnv(cmd.Context())
			if err != nil {
				return err
			}
			submit, err := archive.SubmitURL(e.cfg.Scan.ArchiveURL, args[0])
			if err != nil {
				return fmt.Errorf("build submit url: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), submit)
			return err
		},
	}
}

func newVersionsURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions-url URL",
		Short: "Prints the Wayback Machine listing address for URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if archive.IsInternalPage(args[0]) {
				return autoarchive.ErrInternalPage
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), archive.VersionsURL(args[0]))
			return err
		},
	}
}

func newRealURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "real-url ARCHIVE_URL",
		Short: "Prints the original address behind an archive snapshot link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			original, err := archive.RealURL(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), original)
			return err
		},
	}
}
