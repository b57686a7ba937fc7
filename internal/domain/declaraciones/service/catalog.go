package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/comexdata/aduana-api/internal/domain/declaraciones/catalog"
	"github.com/comexdata/aduana-api/internal/domain/declaraciones/repository"
)

// SyncResult summarizes one catalog synchronization pass.
type SyncResult struct {
	Total        int `json:"total"`
	Agregadas    int `json:"agregadas"`
	Actualizadas int `json:"actualizadas"`
}

// CatalogService maintains the tariff-code catalog derived from the imported
// declarations and serves chapter lookups through a short-lived cache.
type CatalogService struct {
	repo   repository.DeclaracionRepository
	cache  *catalog.Cache
	logger *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(repo repository.DeclaracionRepository, cache *catalog.Cache, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// SyncCatalogo rebuilds the catalog from the distinct tariff codes present in
// the declarations, upserting one entry per code. Running it twice in a row
// yields the same catalog and reports zero additions the second time. The
// chapter cache is dropped at the end.
func (s *CatalogService) SyncCatalogo(ctx context.Context) (*SyncResult, error) {
	partidas, err := s.repo.DistinctPartidas(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading distinct tariff codes: %w", err)
	}

	result := &SyncResult{Total: len(partidas)}
	for _, p := range partidas {
		inserted, err := s.repo.UpsertPartida(ctx, p.Codigo, Capitulo(p.Codigo), p.Descripcion)
		if err != nil {
			return nil, fmt.Errorf("upserting tariff code %s: %w", p.Codigo, err)
		}
		if inserted {
			result.Agregadas++
		} else {
			result.Actualizadas++
		}
	}

	s.cache.InvalidateAll()

	s.logger.InfoContext(ctx, "tariff catalog synchronized",
		slog.Int("total", result.Total),
		slog.Int("added", result.Agregadas),
		slog.Int("updated", result.Actualizadas),
	)
	return result, nil
}

// GetSubPartidas lists the catalog entries of one chapter, cached for a few
// minutes because the catalog only changes on sync.
func (s *CatalogService) GetSubPartidas(ctx context.Context, capitulo string) ([]repository.CodigoDescripcion, error) {
	if cached, ok := s.cache.Get(capitulo); ok {
		return cached, nil
	}

	partidas, err := s.repo.PartidasPorCapitulo(ctx, capitulo)
	if err != nil {
		return nil, fmt.Errorf("loading chapter %s: %w", capitulo, err)
	}

	s.cache.Set(capitulo, partidas)
	return partidas, nil
}

// Capitulo derives the 2-digit chapter from a tariff code: strip everything
// that is not a digit, take the first two digits, left-pad with zeros. A code
// with no digits yields "00".
func Capitulo(codigo string) string {
	var digits strings.Builder
	for _, r := range codigo {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	ch := digits.String()
	if len(ch) > 2 {
		ch = ch[:2]
	}
	for len(ch) < 2 {
		ch = "0" + ch
	}
	return ch
}
