// Package raster converts uploaded documents into ordered per-page images
// suitable for vision model input.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// DPI is the render resolution for PDF pages. 150 is the cost/quality
// tradeoff point for model input; higher resolutions cost more tokens
// without improving extraction.
const DPI = 150

// Page is one raster page of a document.
type Page struct {
	// Index is the zero-based page index.
	Index int
	// Data is the encoded image bytes.
	Data []byte
	// MediaType is the image MIME type (e.g., "image/png").
	MediaType string
}

// supportedExtensions maps accepted upload extensions to the media type the
// page is delivered with. BMP and TIFF have no native support in the target
// models and are re-encoded to PNG.
var supportedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/png",
	".tiff": "image/png",
	".tif":  "image/png",
}

// Supported reports whether the filename's extension is an accepted upload type.
func Supported(filename string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// SupportedExtensions returns the accepted upload extensions, for error messages.
func SupportedExtensions() []string {
	return []string{".pdf", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".tiff", ".tif"}
}

// Rasterize converts a document into its ordered page images. PDFs produce
// one page per document page; any other supported input produces exactly one
// page at index 0. The result is never empty on success.
func Rasterize(content []byte, filename string) ([]Page, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	mediaType, ok := supportedExtensions[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}

	if ext == ".pdf" {
		return rasterizePDF(content)
	}

	data := content
	switch ext {
	case ".bmp", ".tiff", ".tif":
		converted, err := toPNG(content, ext)
		if err != nil {
			return nil, fmt.Errorf("failed to convert %s image: %w", ext, err)
		}
		data = converted
	}

	return []Page{{Index: 0, Data: data, MediaType: mediaType}}, nil
}

// rasterizePDF renders each PDF page to PNG via pdftoppm (poppler-utils),
// pages rendered concurrently but returned in page order.
func rasterizePDF(content []byte) ([]Page, error) {
	pageCount, err := api.PageCount(bytes.NewReader(content), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	// pdftoppm reads from a file, so stage the PDF once.
	tmpDir, err := os.MkdirTemp("", "complicheck-raster-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, content, 0o644); err != nil {
		return nil, fmt.Errorf("failed to stage PDF: %w", err)
	}

	type result struct {
		index int
		data  []byte
		err   error
	}

	const maxWorkers = 4
	results := make(chan result, pageCount)
	sem := make(chan struct{}, maxWorkers)

	for page := 1; page <= pageCount; page++ {
		sem <- struct{}{} // acquire
		go func(pageNum int) {
			defer func() { <-sem }() // release

			data, err := renderPage(pdfPath, tmpDir, pageNum)
			results <- result{index: pageNum - 1, data: data, err: err}
		}(page)
	}

	pages := make([]Page, pageCount)
	for i := 0; i < pageCount; i++ {
		r := <-results
		if r.err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", r.index+1, r.err)
		}
		pages[r.index] = Page{Index: r.index, Data: r.data, MediaType: "image/png"}
	}

	return pages, nil
}

// renderPage renders a single 1-indexed PDF page to PNG bytes.
func renderPage(pdfPath, workDir string, pageNum int) ([]byte, error) {
	outputPrefix := filepath.Join(workDir, fmt.Sprintf("page_%04d", pageNum))

	pageStr := fmt.Sprintf("%d", pageNum)
	cmd := exec.Command("pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprintf("%d", DPI),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	data, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	return data, nil
}

// toPNG decodes a BMP or TIFF image and re-encodes it as PNG.
func toPNG(content []byte, ext string) ([]byte, error) {
	var (
		decoded image.Image
		err     error
	)
	switch ext {
	case ".bmp":
		decoded, err = bmp.Decode(bytes.NewReader(content))
	case ".tiff", ".tif":
		decoded, err = tiff.Decode(bytes.NewReader(content))
	default:
		return nil, fmt.Errorf("no conversion for %s", ext)
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
