package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"img2pdf/backend/internal/config"
)

type formFile struct {
	name string
	data []byte
}

func newTestServer(t *testing.T, origins []string) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	srv := New(config.Config{
		Port:           5000,
		AllowedOrigins: origins,
		UploadDir:      dir,
		MaxUploadBytes: config.DefaultMaxUploadBytes,
	}, logger)
	return srv, dir
}

func multipartBody(t *testing.T, fields map[string]string, files []formFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func smallJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func errBody(t *testing.T, res *http.Response) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return body["error"]
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestConvertMergesImages(t *testing.T) {
	srv, dir := newTestServer(t, nil)
	body, contentType := multipartBody(t,
		map[string]string{"orientation": "portrait", "fit": "true", "margin": "small"},
		[]formFile{
			{"a.jpg", smallJPEG(t, 80, 60)},
			{"b.jpeg", smallJPEG(t, 60, 80)},
		})

	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="byentech-merged.pdf"`,
		rec.Header().Get("Content-Disposition"))

	out := rec.Body.Bytes()
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	ctx, err := pdfapi.ReadValidateAndOptimize(bytes.NewReader(out), model.NewDefaultConfiguration())
	require.NoError(t, err)
	require.NoError(t, ctx.EnsurePageCount())
	assert.Equal(t, 2, ctx.PageCount)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp images removed after conversion")
}

func TestConvertPNGUpload(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	// PNG content behind a .png name; normalization re-encodes it.
	img := image.NewRGBA(image.Rect(0, 0, 30, 20))
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))

	body, contentType := multipartBody(t, nil, []formFile{{"c.PNG", pngBuf.Bytes()}})
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestConvertNoFiles(t *testing.T) {
	srv, dir := newTestServer(t, nil)
	body, contentType := multipartBody(t, map[string]string{"fit": "true"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected before any temp file")
}

func TestConvertUnsupportedExtensionRejectsWholeBatch(t *testing.T) {
	srv, dir := newTestServer(t, nil)
	body, contentType := multipartBody(t, nil, []formFile{
		{"a.jpg", smallJPEG(t, 20, 20)},
		{"notes.txt", []byte("hello")},
	})

	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "notes.txt")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no temp file written for a rejected batch")
}

func TestConvertTooManyFiles(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	files := make([]formFile, 0, maxFiles+1)
	for i := 0; i <= maxFiles; i++ {
		files = append(files, formFile{fmt.Sprintf("f%d.jpg", i), []byte("x")})
	}
	body, contentType := multipartBody(t, nil, files)

	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConvertCorruptImage(t *testing.T) {
	srv, dir := newTestServer(t, nil)
	body, contentType := multipartBody(t, nil, []formFile{{"a.jpg", []byte("not a jpeg")}})

	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Body.String())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOptionsPreflight(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/convert", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRestrictedOrigins(t *testing.T) {
	srv, _ := newTestServer(t, []string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/convert", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/convert", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestConvertMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/convert", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.NotEmpty(t, errBody(t, rec.Result()))
}
