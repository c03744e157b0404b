package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
	"github.com/JakeFAU/page-archiver/internal/decision"
)

type evaluateOptions struct {
	url      string
	text     string
	textFile string
	debug    bool
}

func newEvaluateCmd() *cobra.Command {
	opts := &evaluateOptions{}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Prints the archive verdict for one page",
		Long: `Runs the decision engine against a single page using the configured scan
settings and prints the verdict as JSON. Page text comes from --text,
--text-file ("-" reads stdin), or a live fetch of --url when neither is set.
The scan gate is not applied first, so indicators overriding the scan
conditions show up here.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvaluate(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.url, "url", "", "page URL to evaluate")
	cmd.Flags().StringVar(&opts.text, "text", "", "page text to scan")
	cmd.Flags().StringVar(&opts.textFile, "text-file", "", "file holding the page text, - for stdin")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "log every sub-result at info level")
	_ = cmd.MarkFlagRequired("url")
	cmd.MarkFlagsMutuallyExclusive("text", "text-file")
	return cmd
}

func runEvaluate(cmd *cobra.Command, opts *evaluateOptions) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	text, err := evaluateText(cmd, e, opts)
	if err != nil {
		return err
	}

	settings := e.cfg.Scan
	settings.DebugMode = settings.DebugMode || opts.debug
	verdict, err := decision.NewEngine(e.logger.Named("engine")).Evaluate(opts.url, settings, text)
	if err != nil {
		return fmt.Errorf("evaluate %q: %w", opts.url, err)
	}
	return writeJSON(cmd.OutOrStdout(), verdict)
}

func evaluateText(cmd *cobra.Command, e *env, opts *evaluateOptions) (string, error) {
	switch {
	case cmd.Flags().Changed("text"):
		return opts.text, nil
	case opts.textFile == "-":
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(raw), nil
	case opts.textFile != "":
		raw, err := os.ReadFile(opts.textFile)
		if err != nil {
			return "", fmt.Errorf("read text file: %w", err)
		}
		return string(raw), nil
	}

	resp, err := newStaticFetcher(e.cfg).Fetch(cmd.Context(), autoarchive.FetchRequest{URL: opts.url})
	if err != nil {
		return "", fmt.Errorf("fetch %q: %w", opts.url, err)
	}
	e.logger.Debug("page fetched",
		zap.String("url", resp.URL),
		zap.Int("status", resp.StatusCode),
		zap.Int("text_length", len(resp.Text)),
	)
	if strings.TrimSpace(resp.Text) == "" {
		return "", errors.New("fetched page has no visible text")
	}
	return resp.Text, nil
}

func writeJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
