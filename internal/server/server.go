// Package server exposes embed, extract and verify over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/vearutop/markmesh"
	"github.com/vearutop/markmesh/internal/config"
	"github.com/vearutop/markmesh/internal/report"
)

// Handler serves the watermarking endpoints.
type Handler struct {
	cfg    config.Config
	logger *slog.Logger
}

// New creates a Handler with the given settings.
func New(cfg config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{cfg: cfg, logger: logger}
}

// Routes returns the mux with compression and CORS applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.HandleHome)
	mux.HandleFunc("POST /embed", h.HandleEmbed)
	mux.HandleFunc("POST /extract", h.HandleExtract)
	mux.HandleFunc("POST /verify", h.HandleVerify)
	mux.HandleFunc("GET /download/{file}", h.HandleDownload)
	return gzhttp.GzipHandler(withCORS(mux))
}

// HandleHome reports that the server is alive.
func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "markmesh server is running"})
}

// HandleEmbed expects multipart fields "image" (cover) and "watermark".
func (h *Handler) HandleEmbed(w http.ResponseWriter, r *http.Request) {
	files, ok := h.readFiles(w, r, "image", "watermark")
	if !ok {
		return
	}

	out, err := markmesh.EmbedBytes(files["image"], files["watermark"], func(o *markmesh.EmbedOptions) {
		o.Alpha = h.cfg.Alpha
		o.Codec.Interpolation = h.cfg.Kernel()
		o.Logger = h.logger
	})
	if err != nil {
		h.writeError(w, "Failed to embed watermark.", err)
		return
	}

	h.logger.Info("watermark embedded", "bytes", len(out))
	h.writePNG(w, out, "embedded.png")
}

// HandleExtract expects a multipart field "image".
func (h *Handler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	files, ok := h.readFiles(w, r, "image")
	if !ok {
		return
	}

	out, res, err := markmesh.ExtractBytes(files["image"], func(o *markmesh.ExtractOptions) {
		o.Alpha = h.cfg.Alpha
		o.Logger = h.logger
	})
	if err != nil {
		h.writeError(w, "Failed to extract watermark.", err)
		return
	}

	name := "extracted_watermark_rgb.png"
	if res.Mode == markmesh.ModeGrayscaleFallback {
		name = "extracted_watermark_gray.png"
	}
	h.logger.Info("watermark extracted", "mode", res.Mode.String())
	w.Header().Set("X-Markmesh-Mode", res.Mode.String())
	h.writePNG(w, out, name)
}

// HandleVerify expects multipart fields "initial_watermark" and "extracted_watermark".
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	files, ok := h.readFiles(w, r, "initial_watermark", "extracted_watermark")
	if !ok {
		return
	}

	res, err := markmesh.VerifyBytes(files["initial_watermark"], files["extracted_watermark"],
		func(o *markmesh.VerifyOptions) {
			o.Thresholds = h.cfg.Thresholds
		})
	if err != nil {
		h.writeError(w, "Failed to verify watermark.", err)
		return
	}

	h.logger.Info("watermark verified",
		"psnr", res.PSNR, "ssim", res.SSIM, "correlation", res.Correlation, "status", res.Verdict)

	resp := verifyResponse{VerificationResult: res}
	if h.cfg.ReportDir != "" {
		rep := report.New("initial_watermark", "extracted_watermark", h.cfg.Thresholds, res, time.Now())
		rep.AttachImages(files["initial_watermark"], files["extracted_watermark"])
		name, err := report.CreateIn(h.cfg.ReportDir, rep)
		if err != nil {
			h.writeError(w, "Failed to write verification report.", err)
			return
		}
		resp.DownloadLink = "/download/" + name
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleDownload serves a verification report written by HandleVerify.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	if h.cfg.ReportDir == "" || name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "File not found."})
		return
	}

	path := filepath.Join(h.cfg.ReportDir, name)
	if fi, err := os.Stat(path); err != nil || fi.IsDir() {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "File not found."})
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

type verifyResponse struct {
	*markmesh.VerificationResult
	DownloadLink string `json:"downloadLink,omitempty"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// readFiles reads the named multipart files, writing a 400 response when one is missing.
func (h *Handler) readFiles(w http.ResponseWriter, r *http.Request, fields ...string) (map[string][]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid multipart form.", Details: []string{err.Error()}})
		return nil, false
	}

	files := make(map[string][]byte, len(fields))
	for _, field := range fields {
		f, _, err := r.FormFile(field)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("No %s file uploaded.", field)})
			return nil, false
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("Failed to read %s.", field), Details: []string{err.Error()}})
			return nil, false
		}
		files[field] = data
	}
	return files, true
}

func (h *Handler) writeError(w http.ResponseWriter, message string, err error) {
	code := StatusCode(err)
	resp := errorResponse{Error: message, Details: []string{err.Error()}}

	var cre *markmesh.ChannelRecoveryError
	if errors.As(err, &cre) {
		resp.Details = resp.Details[:0]
		for _, f := range cre.Failures {
			resp.Details = append(resp.Details, fmt.Sprintf("%s channel recovery failed: %v", f.Channel, f.Err))
		}
	}

	if code >= http.StatusInternalServerError {
		h.logger.Error(message, "error", err)
	} else {
		h.logger.Warn(message, "error", err)
	}
	h.writeJSON(w, code, resp)
}

// StatusCode maps pipeline error classes to HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, markmesh.ErrShape),
		errors.Is(err, markmesh.ErrDecode),
		errors.Is(err, markmesh.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writePNG(w http.ResponseWriter, data []byte, name string) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Unable to write PNG response", "err", err)
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
