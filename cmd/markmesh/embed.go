package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vearutop/markmesh"
)

func newEmbedCmd(a *app) *cobra.Command {
	var (
		coverPath     string
		watermarkPath string
		outPath       string
		alpha         float64
		interpolation string
	)

	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed a watermark into a cover image",
		Example: `  # Hide watermark.png inside cover.png
  markmesh embed --cover cover.png --watermark watermark.png --out embedded.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cover, err := os.ReadFile(filepath.Clean(coverPath))
			if err != nil {
				return fmt.Errorf("read cover: %w", err)
			}
			wm, err := os.ReadFile(filepath.Clean(watermarkPath))
			if err != nil {
				return fmt.Errorf("read watermark: %w", err)
			}

			kernel := a.cfg.Kernel()
			if cmd.Flags().Changed("interpolation") {
				if kernel, err = markmesh.ParseInterpolation(interpolation); err != nil {
					return err
				}
			}

			strength := a.alpha(cmd, alpha)
			out, err := markmesh.EmbedBytes(cover, wm, func(o *markmesh.EmbedOptions) {
				o.Alpha = strength
				o.Codec.Interpolation = kernel
				o.Logger = a.logger
			})
			if err != nil {
				return err
			}

			if err := os.WriteFile(filepath.Clean(outPath), out, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			a.logger.Info("Watermark embedded", "cover", coverPath, "watermark", watermarkPath, "out", outPath, "alpha", strength)
			return nil
		},
	}

	cmd.Flags().StringVar(&coverPath, "cover", "", "Cover image, 512x512 (required)")
	cmd.Flags().StringVar(&watermarkPath, "watermark", "", "Watermark image, 32x32 (required)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "embedded.png", "Output PNG path")
	cmd.Flags().Float64Var(&alpha, "alpha", markmesh.DefaultAlpha, "Embedding strength, must match extraction")
	cmd.Flags().StringVar(&interpolation, "interpolation", "bilinear",
		"Kernel fitting the watermark to the row pairs: bilinear, nearest, bicubic, mitchell, lanczos2 or lanczos3")
	_ = cmd.MarkFlagRequired("cover")
	_ = cmd.MarkFlagRequired("watermark")

	return cmd
}
