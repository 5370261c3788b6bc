// Package registry provides company search over the symbol registry CSV
package registry

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/bobmcallan/stance/internal/cache"
	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/models"
)

// DefaultLimit is the number of results returned when none is requested
const DefaultLimit = 10

// MaxLimit caps the number of results
const MaxLimit = 50

type entry struct {
	company     models.Company
	symbolUpper string
	nameUpper   string
}

// Service implements SearchService over an in-memory registry
type Service struct {
	entries  []entry
	bySymbol map[string]int
	cache    *cache.Tiered
	ttl      time.Duration
	logger   *common.Logger
}

// NewService creates a registry from the CSV at path. An empty path yields
// an empty registry. c may be nil to disable result caching.
func NewService(path string, c *cache.Tiered, ttl time.Duration, logger *common.Logger) (*Service, error) {
	s := &Service{bySymbol: make(map[string]int), cache: c, ttl: ttl, logger: logger}
	if path == "" {
		return s, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry %s: %w", path, err)
	}
	defer f.Close()
	if err := s.load(f); err != nil {
		return nil, fmt.Errorf("failed to load registry %s: %w", path, err)
	}
	logger.Info().Int("companies", len(s.entries)).Str("path", path).Msg("Company registry loaded")
	return s, nil
}

// load reads rows with a header naming at least a symbol column. Name,
// sector and industry columns are optional.
func (s *Service) load(r io.Reader) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int)
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	symCol, ok := cols["symbol"]
	if !ok {
		return errors.New("header has no symbol column")
	}
	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if symCol >= len(row) {
			continue
		}
		symbol := strings.ToUpper(strings.TrimSpace(row[symCol]))
		if symbol == "" {
			continue
		}
		if _, dup := s.bySymbol[symbol]; dup {
			continue
		}
		c := models.Company{
			Symbol:   symbol,
			Name:     field(row, "name"),
			Sector:   field(row, "sector"),
			Industry: field(row, "industry"),
		}
		s.bySymbol[symbol] = len(s.entries)
		s.entries = append(s.entries, entry{company: c, symbolUpper: symbol, nameUpper: strings.ToUpper(c.Name)})
	}
	return nil
}

// Count returns the number of companies loaded
func (s *Service) Count() int { return len(s.entries) }

// Lookup returns the registry entry for an exact symbol
func (s *Service) Lookup(symbol string) (models.Company, bool) {
	i, ok := s.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return models.Company{}, false
	}
	return s.entries[i].company, true
}

// Search ranks exact symbol, symbol prefix, symbol substring, then name
// substring matches. Ties sort by symbol.
func (s *Service) Search(ctx context.Context, query string, limit int) (*models.SearchResult, error) {
	q := strings.ToUpper(strings.TrimSpace(query))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if q == "" {
		return &models.SearchResult{Query: query, Results: []models.Company{}}, nil
	}

	if s.cache == nil {
		return s.search(q, query, limit), nil
	}
	key := models.SearchKey(fmt.Sprintf("%s:%d", q, limit))
	res, _, err := cache.GetOrComputeJSON(ctx, s.cache, key, s.ttl, func(context.Context) (*models.SearchResult, error) {
		return s.search(q, query, limit), nil
	})
	if err != nil {
		return nil, err
	}
	res.Query = query
	return res, nil
}

func (s *Service) search(q, query string, limit int) *models.SearchResult {
	type ranked struct {
		rank int
		c    models.Company
	}
	var hits []ranked
	for _, e := range s.entries {
		rank := -1
		switch {
		case e.symbolUpper == q:
			rank = 0
		case strings.HasPrefix(e.symbolUpper, q):
			rank = 1
		case strings.Contains(e.symbolUpper, q):
			rank = 2
		case strings.Contains(e.nameUpper, q):
			rank = 3
		}
		if rank >= 0 {
			hits = append(hits, ranked{rank, e.company})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].rank != hits[j].rank {
			return hits[i].rank < hits[j].rank
		}
		return hits[i].c.Symbol < hits[j].c.Symbol
	})

	out := make([]models.Company, 0, limit)
	for _, h := range hits {
		if len(out) == limit {
			break
		}
		out = append(out, h.c)
	}
	return &models.SearchResult{Query: query, Results: out, Count: len(out)}
}
