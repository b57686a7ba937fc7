// Package service implements ingestion, catalog maintenance and query
// operations for customs declarations.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/comexdata/aduana-api/internal/domain/declaraciones/mapper"
	"github.com/comexdata/aduana-api/internal/domain/declaraciones/parser"
	"github.com/comexdata/aduana-api/internal/domain/declaraciones/repository"
	"github.com/comexdata/aduana-api/internal/domain/declaraciones/sniffer"
	"github.com/comexdata/aduana-api/pkg/metrics"
)

// DefaultMaxBytes is the largest file accepted for import.
const DefaultMaxBytes = 1 << 30 // 1 GiB

// sniffSize is how much of the file head is inspected to detect the delimiter
// and header line.
const sniffSize = 128 * 1024

// ImportResult summarizes one file import. Row-level failures are collected
// as "Fila N: ..." messages instead of aborting the run.
type ImportResult struct {
	Importadas   int      `json:"importadas"`
	Omitidas     int      `json:"omitidas"`
	Errores      []string `json:"errores,omitempty"`
	Advertencias []string `json:"advertencias,omitempty"`
}

// Archiver stores a copy of an imported source file for audit purposes.
type Archiver interface {
	Archive(ctx context.Context, srcPath string) (string, error)
}

// ImportService ingests declaration files into the store.
type ImportService struct {
	repo     repository.DeclaracionRepository
	catalogo *CatalogService
	archiver Archiver // optional
	metrics  *metrics.Metrics
	logger   *slog.Logger
	maxBytes int64
}

// NewImportService creates an import service. archiver may be nil to disable
// archiving; maxBytes <= 0 falls back to DefaultMaxBytes.
func NewImportService(
	repo repository.DeclaracionRepository,
	catalogo *CatalogService,
	archiver Archiver,
	m *metrics.Metrics,
	logger *slog.Logger,
	maxBytes int64,
) *ImportService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &ImportService{
		repo:     repo,
		catalogo: catalogo,
		archiver: archiver,
		metrics:  m,
		logger:   logger,
		maxBytes: maxBytes,
	}
}

// ImportFromPath ingests one CSV/TSV or Excel file. delimiterHint may be
// empty or "auto" to sniff the delimiter, or one of tab, semicolon, comma,
// pipe. Row failures are recorded in the result; only file-level problems
// return an error.
func (s *ImportService) ImportFromPath(ctx context.Context, path, delimiterHint string) (*ImportResult, error) {
	start := time.Now()

	delimiter, err := sniffer.DelimiterFromHint(delimiterHint)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", path, err)
	}
	if info.Size() > s.maxBytes {
		return nil, fmt.Errorf("file size %d exceeds the %d byte limit", info.Size(), s.maxBytes)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var result *ImportResult
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls", ".xlsm":
		result, err = s.importExcel(ctx, f)
	default:
		result, err = s.importCSV(ctx, f, delimiter)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.RowsImported.Add(float64(result.Importadas))
	s.metrics.RowsSkipped.Add(float64(result.Omitidas))
	s.metrics.RowsFailed.Add(float64(len(result.Errores)))
	s.metrics.ImportDuration.Observe(time.Since(start).Seconds())

	if result.Importadas > 0 {
		if _, err := s.catalogo.SyncCatalogo(ctx); err != nil {
			s.logger.WarnContext(ctx, "catalog sync after import failed", slog.Any("error", err))
			result.Advertencias = append(result.Advertencias,
				fmt.Sprintf("catálogo no sincronizado: %v", err))
		} else {
			s.metrics.CatalogSyncs.Inc()
		}
	}

	s.archive(ctx, path)

	s.logger.InfoContext(ctx, "file imported",
		slog.String("file", filepath.Base(path)),
		slog.Int("imported", result.Importadas),
		slog.Int("skipped", result.Omitidas),
		slog.Int("failed", len(result.Errores)),
		slog.Duration("took", time.Since(start)),
	)
	return result, nil
}

// importCSV streams a delimited file row by row. A zero delimiter triggers
// sniffing over the file head.
func (s *ImportService) importCSV(ctx context.Context, f *os.File, delimiter rune) (*ImportResult, error) {
	head := make([]byte, sniffSize)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("reading file head: %w", err)
	}
	sample := string(head[:n])

	if delimiter == 0 {
		delimiter = sniffer.DetectDelimiter(sample)
	}
	headerLine := sniffer.DetectFirstDataLine(sample, delimiter)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding file: %w", err)
	}

	reader, err := parser.NewCSVRowReader(f, delimiter, headerLine)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for {
		row, num, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errores = append(result.Errores, fmt.Sprintf("Fila %d: %v", num, err))
			continue
		}
		s.persistRow(ctx, row, num, result)
	}
	return result, nil
}

// importExcel materializes the first sheet and ingests its data rows. Row
// numbers start at 2, right below the header.
func (s *ImportService) importExcel(ctx context.Context, f *os.File) (*ImportResult, error) {
	rows, err := parser.ReadExcelRows(f)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for i, row := range rows {
		s.persistRow(ctx, row, i+2, result)
	}
	return result, nil
}

func (s *ImportService) persistRow(ctx context.Context, row parser.Row, num int, result *ImportResult) {
	d, ok := mapper.MapRow(row)
	if !ok {
		result.Omitidas++
		return
	}
	if err := s.repo.CreateDeclaracion(ctx, d); err != nil {
		result.Errores = append(result.Errores, fmt.Sprintf("Fila %d: %v", num, err))
		return
	}
	result.Importadas++
}

func (s *ImportService) archive(ctx context.Context, path string) {
	if s.archiver == nil {
		return
	}
	dest, err := s.archiver.Archive(ctx, path)
	if err != nil {
		s.logger.WarnContext(ctx, "archiving source file failed",
			slog.String("file", filepath.Base(path)), slog.Any("error", err))
		return
	}
	s.logger.InfoContext(ctx, "source file archived", slog.String("dest", dest))
}
