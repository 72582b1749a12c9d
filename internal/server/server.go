// Package server exposes the conversion service over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"img2pdf/backend/internal/config"
	"img2pdf/backend/internal/imagefile"
	"img2pdf/backend/internal/layout"
)

const maxFiles = 50

var allowedExtensions = []string{".jpg", ".jpeg", ".png"}

// Server holds the HTTP handlers for the conversion service.
type Server struct {
	cfg config.Config
	log *logrus.Logger
}

// New wires a Server with its configuration and logger.
func New(cfg config.Config, log *logrus.Logger) *Server {
	return &Server{cfg: cfg, log: log}
}

// Handler returns the routed handler tree, CORS middleware included.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.health)
	mux.HandleFunc("/convert", s.convert)
	return s.corsMiddleware(mux)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case len(s.cfg.AllowedOrigins) == 0:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.cfg.AllowedOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) convert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	if r.MultipartForm == nil {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "empty file list")
		return
	}
	if len(files) > maxFiles {
		writeError(w, http.StatusBadRequest, "too many files")
		return
	}

	// Reject the whole batch before touching the disk.
	for _, fh := range files {
		if !allowedFilename(fh.Filename) {
			writeError(w, http.StatusBadRequest, "unsupported file: "+fh.Filename)
			return
		}
	}

	cfg := layout.Config{
		Orientation:  layout.ParseOrientation(r.FormValue("orientation")),
		FitToImage:   parseFit(r.FormValue("fit")),
		MarginPreset: layout.ParseMarginPreset(r.FormValue("margin")),
	}

	var temps []*imagefile.TempImage
	defer func() {
		for _, t := range temps {
			if err := t.Close(); err != nil {
				s.log.WithError(err).Warn("failed to remove temp image")
			}
		}
	}()

	images := make([]layout.ImageDescriptor, 0, len(files))
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to read upload: "+fh.Filename)
			return
		}
		temp, err := imagefile.Save(src, s.cfg.UploadDir)
		src.Close()
		if err != nil {
			s.log.WithError(err).WithField("file", fh.Filename).Error("failed to normalize upload")
			writeError(w, http.StatusInternalServerError, "failed to process image: "+fh.Filename)
			return
		}
		temps = append(temps, temp)
		images = append(images, temp.Descriptor())
	}

	s.log.WithFields(logrus.Fields{
		"files":       len(images),
		"orientation": cfg.Orientation,
		"fit":         cfg.FitToImage,
		"margin":      cfg.MarginPreset,
	}).Info("converting batch")

	out, err := layout.Render(images, cfg)
	if err != nil {
		s.log.WithError(err).Error("conversion failed")
		status := http.StatusInternalServerError
		if errors.Is(err, layout.ErrNoImages) || errors.Is(err, layout.ErrInvalidImage) {
			status = http.StatusBadRequest
		}
		writeError(w, status, "failed to convert images: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="byentech-merged.pdf"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		s.log.WithError(err).Warn("failed to write response body")
	}
}

func allowedFilename(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return slices.Contains(allowedExtensions, ext)
}

// parseFit interprets the "fit" form field. Anything but the literal
// "true", including an absent field, selects the fixed A4 page.
func parseFit(v string) bool {
	return v == "true"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
