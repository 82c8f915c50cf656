// Package extract orchestrates document parsing: page rasterization, per-page
// vision calls, and assembly of page results into a single document result.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/complicheck/complicheck/internal/parse"
	"github.com/complicheck/complicheck/internal/providers"
	"github.com/complicheck/complicheck/internal/raster"
)

// ErrUnsupportedFileType is returned before any backend work when the upload
// extension is not an accepted document type.
var ErrUnsupportedFileType = errors.New("file type not supported")

const defaultPageWorkers = 4

// Service dispatches parse requests to the configured backends and assembles
// per-page results into whole-document results.
type Service struct {
	registry *providers.Registry
	workers  int
	logger   *slog.Logger
}

// NewService creates a parse service over the given backend registry.
func NewService(registry *providers.Registry, workers int, logger *slog.Logger) *Service {
	if workers <= 0 {
		workers = defaultPageWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry: registry,
		workers:  workers,
		logger:   logger,
	}
}

// Parse parses an uploaded document with the named backend. An empty backend
// selects the hosted document parser. Vision backends fan out one call per
// page; any page failure fails the whole parse so results are never partial.
func (s *Service) Parse(ctx context.Context, content []byte, filename, backend, model string) (*parse.ParseResult, error) {
	if !raster.Supported(filename) {
		return nil, fmt.Errorf("%w: %s (allowed: %s)",
			ErrUnsupportedFileType, filename, strings.Join(raster.SupportedExtensions(), ", "))
	}

	if backend == "" {
		backend = providers.BackendLandingAI
	}

	if s.registry.HasParser(backend) {
		parser, err := s.registry.Parser(backend)
		if err != nil {
			return nil, err
		}
		s.logger.Info("parsing document", "backend", backend, "filename", filename, "bytes", len(content))
		return parser.Parse(ctx, content, filename)
	}

	provider, err := s.registry.Vision(backend)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = provider.DefaultModel()
	}

	pages, err := raster.Rasterize(content, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize %s: %w", filename, err)
	}

	s.logger.Info("parsing document",
		"backend", backend, "model", model, "filename", filename, "pages", len(pages))

	pageResults, err := s.processPages(ctx, provider, pages, model)
	if err != nil {
		return nil, err
	}

	return assemble(pageResults, backend, model), nil
}

// processPages runs per-page vision calls with bounded concurrency, returning
// results in page order.
func (s *Service) processPages(ctx context.Context, provider providers.VisionProvider, pages []raster.Page, model string) ([]*providers.PageResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		idx int
		res *providers.PageResult
		err error
	}

	results := make(chan result, len(pages))
	sem := make(chan struct{}, s.workers)

	for i, page := range pages {
		sem <- struct{}{} // acquire
		go func(idx int, page raster.Page) {
			defer func() { <-sem }() // release

			res, err := provider.ProcessPage(ctx, page, model)
			results <- result{idx: idx, res: res, err: err}
		}(i, page)
	}

	ordered := make([]*providers.PageResult, len(pages))
	var firstErr error
	for range pages {
		r := <-results
		if r.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("page %d failed: %w", r.idx, r.err)
				cancel() // stop remaining pages
			}
			continue
		}
		ordered[r.idx] = r.res
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return ordered, nil
}

// assemble merges per-page results into a document result. Page markdown is
// joined under "## Page N" headings with pages numbered from 1; chunks keep
// their zero-based page indices.
func assemble(pageResults []*providers.PageResult, backend, model string) *parse.ParseResult {
	markdownParts := make([]string, 0, len(pageResults))
	var chunks []parse.Chunk
	var inputTokens, outputTokens int

	for i, pr := range pageResults {
		markdownParts = append(markdownParts, fmt.Sprintf("## Page %d\n\n%s", i+1, pr.Markdown))
		chunks = append(chunks, pr.Chunks...)
		inputTokens += pr.Usage.InputTokens
		outputTokens += pr.Usage.OutputTokens
	}

	return &parse.ParseResult{
		Markdown: strings.Join(markdownParts, "\n\n"),
		Chunks:   chunks,
		Metadata: parse.Metadata{
			PageCount:   len(pageResults),
			CreditUsage: nil,
			Model:       model,
			Parser:      backend,
			Usage: parse.Usage{
				InputTokens:  inputTokens,
				OutputTokens: outputTokens,
				Model:        model,
			},
		},
	}
}
