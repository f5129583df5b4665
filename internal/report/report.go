// Package report renders verification results as YAML documents.
package report

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vearutop/markmesh"
)

// Report is a persisted verification record.
type Report struct {
	Title       string              `yaml:"title"`
	GeneratedAt string              `yaml:"generated_at"`
	Reference   string              `yaml:"reference"`
	Candidate   string              `yaml:"candidate"`
	Thresholds  markmesh.Thresholds `yaml:"thresholds"`
	Metrics     Metrics             `yaml:"metrics"`
	Status      markmesh.Verdict    `yaml:"status"`
	Images      *Images             `yaml:"images,omitempty"`
}

// Images carries both watermarks as base64 encoded image files.
type Images struct {
	Reference string `yaml:"reference"`
	Candidate string `yaml:"candidate"`
}

// AttachImages stores the encoded reference and candidate watermarks in the report.
func (r *Report) AttachImages(reference, candidate []byte) {
	r.Images = &Images{
		Reference: base64.StdEncoding.EncodeToString(reference),
		Candidate: base64.StdEncoding.EncodeToString(candidate),
	}
}

// Metrics are rounded for display: PSNR to 2 decimals, SSIM and correlation to 4.
type Metrics struct {
	PSNR        string `yaml:"psnr"`
	SSIM        string `yaml:"ssim"`
	Correlation string `yaml:"correlation"`
}

// New builds a report for res.
func New(reference, candidate string, t markmesh.Thresholds, res *markmesh.VerificationResult, now time.Time) Report {
	return Report{
		Title:       "MarkMesh Verification Report",
		GeneratedAt: now.Format("2006-01-02 15:04:05"),
		Reference:   reference,
		Candidate:   candidate,
		Thresholds:  t,
		Metrics: Metrics{
			PSNR:        fmt.Sprintf("%.2f", res.PSNR),
			SSIM:        fmt.Sprintf("%.4f", res.SSIM),
			Correlation: fmt.Sprintf("%.4f", res.Correlation),
		},
		Status: res.Verdict,
	}
}

// Write encodes r as YAML.
func Write(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

// WriteFile writes r to path, creating parent directories.
func WriteFile(path string, r Report) error {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := Write(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// CreateIn writes r to a new uniquely named file in dir and returns the file name.
func CreateIn(dir string, r Report) (string, error) {
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	f, err := os.CreateTemp(dir, "verification_report_*.yaml")
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if err := Write(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	return filepath.Base(f.Name()), nil
}
