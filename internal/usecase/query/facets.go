package query

import (
	"context"
	"sort"
	"time"

	"github.com/kailas-cloud/facetdex/internal/domain/attribute"
	"github.com/kailas-cloud/facetdex/internal/domain/catalog"
	domquery "github.com/kailas-cloud/facetdex/internal/domain/query"
	"github.com/kailas-cloud/facetdex/internal/metrics"
)

// checkEvery is how many documents a facet worker scans between deadline
// checks.
const checkEvery = 256

// computeFacets counts facet buckets for every filterable attribute, one
// goroutine per attribute over the shared read-only snapshot. Each facet
// counts against the request with that attribute's own filter removed, so
// selecting a value never hides its siblings. Returns degraded=true when
// the budget expired before every facet finished; whatever completed is
// still returned.
func (s *Service) computeFacets(
	ctx context.Context,
	r *domquery.Request,
	cat *catalog.SourceCategory,
	filterable map[string]attribute.Definition,
	docs []catalog.Document,
) ([]domquery.Facet, *domquery.PriceStats, bool) {
	start := time.Now()
	defer func() {
		metrics.FacetComputeDuration.Observe(time.Since(start).Seconds())
	}()

	fctx, cancel := context.WithTimeout(ctx, s.facetBudget)
	defer cancel()

	codes := make([]string, 0, len(filterable))
	for code := range filterable {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	type result struct {
		idx   int
		facet domquery.Facet
		ok    bool
	}
	ch := make(chan result, len(codes))
	for i, code := range codes {
		go func(idx int, def attribute.Definition) {
			f, err := countFacet(fctx, r, cat, def, docs)
			ch <- result{idx: idx, facet: f, ok: err == nil}
		}(i, filterable[code])
	}

	statsCh := make(chan *domquery.PriceStats, 1)
	go func() {
		statsCh <- priceStats(fctx, r, cat, docs)
	}()

	ordered := make([]*domquery.Facet, len(codes))
	degraded := false
	for pending := len(codes); pending > 0; {
		select {
		case res := <-ch:
			pending--
			if res.ok {
				ordered[res.idx] = &res.facet
			} else {
				degraded = true
			}
		case <-fctx.Done():
			degraded = true
			pending = 0
		}
	}
	// The stats worker observes the same deadline and always sends.
	stats := <-statsCh
	if stats == nil && fctx.Err() != nil {
		degraded = true
	}

	facets := make([]domquery.Facet, 0, len(ordered))
	for _, f := range ordered {
		if f != nil && len(f.Values) > 0 {
			facets = append(facets, *f)
		}
	}

	if degraded {
		metrics.FacetDegradedTotal.Inc()
	}
	return facets, stats, degraded
}

// countFacet builds one facet: value counts over documents matching the
// request minus this attribute's own filter. Selected values survive at
// zero count so the caller can render them for deselection.
func countFacet(
	ctx context.Context,
	r *domquery.Request,
	cat *catalog.SourceCategory,
	def attribute.Definition,
	docs []catalog.Document,
) (domquery.Facet, error) {
	excluded := r.WithoutAttribute(def.Code())
	pred := compile(&excluded, cat)

	counts := make(map[string]int)
	for i := range docs {
		if i%checkEvery == 0 && ctx.Err() != nil {
			return domquery.Facet{}, ctx.Err()
		}
		d := &docs[i]
		if !pred.matches(d) {
			continue
		}
		for _, v := range d.AttributeValues(def.Code()) {
			counts[v]++
		}
	}

	selected := make(map[string]bool)
	for _, v := range r.AttributeFilter(def.Code()) {
		selected[v] = true
		if _, ok := counts[v]; !ok {
			counts[v] = 0
		}
	}

	values := make([]domquery.FacetValue, 0, len(counts))
	for v, c := range counts {
		values = append(values, domquery.FacetValue{
			Value: v, Label: v, Count: c, Selected: selected[v],
		})
	}
	sort.Slice(values, func(i, j int) bool {
		if values[i].Count != values[j].Count {
			return values[i].Count > values[j].Count
		}
		return values[i].Value < values[j].Value
	})

	return domquery.Facet{
		Code:   def.Code(),
		Type:   def.AttrType(),
		Unit:   def.Unit(),
		Values: values,
	}, nil
}

// priceStats computes the observed price bounds among documents matching
// the request minus its price filter. Nil when nothing matches or the
// deadline expired.
func priceStats(
	ctx context.Context,
	r *domquery.Request,
	cat *catalog.SourceCategory,
	docs []catalog.Document,
) *domquery.PriceStats {
	excluded := r.WithoutPrice()
	pred := compile(&excluded, cat)

	var stats *domquery.PriceStats
	for i := range docs {
		if i%checkEvery == 0 && ctx.Err() != nil {
			return nil
		}
		d := &docs[i]
		if !pred.matches(d) {
			continue
		}
		if stats == nil {
			stats = &domquery.PriceStats{Min: d.MinPrice(), Max: d.MaxPrice()}
			continue
		}
		if d.MinPrice() < stats.Min {
			stats.Min = d.MinPrice()
		}
		if d.MaxPrice() > stats.Max {
			stats.Max = d.MaxPrice()
		}
	}
	return stats
}
