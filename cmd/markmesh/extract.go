package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vearutop/markmesh"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		inPath  string
		outPath string
		alpha   float64
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Recover a watermark from an embedded image",
		Example: `  # Recover the watermark as a 32x32 PNG
  markmesh extract --in embedded.png --out extracted.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(filepath.Clean(inPath))
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			strength := a.alpha(cmd, alpha)
			out, res, err := markmesh.ExtractBytes(data, func(o *markmesh.ExtractOptions) {
				o.Alpha = strength
				o.Logger = a.logger
			})
			if err != nil {
				return err
			}

			if err := os.WriteFile(filepath.Clean(outPath), out, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			a.logger.Info("Watermark extracted", "in", inPath, "out", outPath, "mode", res.Mode.String(), "alpha", strength)
			return nil
		},
	}

	cmd.Flags().StringVar(&inPath, "in", "", "Embedded image (required)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "extracted.png", "Output PNG path")
	cmd.Flags().Float64Var(&alpha, "alpha", markmesh.DefaultAlpha, "Embedding strength used at embed time")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}
