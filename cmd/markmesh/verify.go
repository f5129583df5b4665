package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vearutop/markmesh"
	"github.com/vearutop/markmesh/internal/report"
)

func newVerifyCmd(a *app) *cobra.Command {
	var (
		referencePath string
		candidatePath string
		format        string
		reportPath    string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Score an extracted watermark against the original",
		Long: `Computes PSNR, SSIM and the Pearson correlation between the original and the
extracted watermark. The carrier is Authentic only when every metric reaches
its threshold, Tampered otherwise.`,
		Example: `  # Print the verdict as YAML
  markmesh verify --reference watermark.png --candidate extracted.png

  # Print JSON and keep a report file
  markmesh verify --reference watermark.png --candidate extracted.png --format json --report report.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := os.ReadFile(filepath.Clean(referencePath))
			if err != nil {
				return fmt.Errorf("read reference: %w", err)
			}
			cand, err := os.ReadFile(filepath.Clean(candidatePath))
			if err != nil {
				return fmt.Errorf("read candidate: %w", err)
			}

			res, err := markmesh.VerifyBytes(ref, cand, func(o *markmesh.VerifyOptions) {
				o.Thresholds = a.cfg.Thresholds
			})
			if err != nil {
				return err
			}

			if err := printResult(cmd.OutOrStdout(), format, res); err != nil {
				return err
			}

			if reportPath != "" {
				r := report.New(referencePath, candidatePath, a.cfg.Thresholds, res, time.Now())
				r.AttachImages(ref, cand)
				if err := report.WriteFile(reportPath, r); err != nil {
					return err
				}
				a.logger.Info("Verification report written", "path", reportPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&referencePath, "reference", "", "Original watermark (required)")
	cmd.Flags().StringVar(&candidatePath, "candidate", "", "Extracted watermark (required)")
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or json")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a YAML verification report to this path")
	_ = cmd.MarkFlagRequired("reference")
	_ = cmd.MarkFlagRequired("candidate")

	return cmd
}

func printResult(w io.Writer, format string, res *markmesh.VerificationResult) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(res); err != nil {
			_ = enc.Close()
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
