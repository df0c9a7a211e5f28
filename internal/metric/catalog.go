package metric

import (
	"fmt"
	"sync"

	"github.com/roach88/hiscores/internal/codec"
)

// Catalog maps every metric to its kind and, for computed metrics, the
// denominator its stored numerator is scaled by.
//
// Denominators may be overridden while the process is configuring itself.
// After that the catalog is only read; reads and writes are guarded by an
// RWMutex so late overrides never race with decoding.
type Catalog struct {
	mu           sync.RWMutex
	kinds        map[Metric]Kind
	denominators map[Metric]int64
	order        []Metric
}

// NewCatalog returns a catalog of all known metrics. Computed metrics start
// with codec.DefaultDenominator.
func NewCatalog() *Catalog {
	c := &Catalog{
		kinds:        make(map[Metric]Kind),
		denominators: make(map[Metric]int64),
	}
	c.add(KindSkill, Skills)
	c.add(KindActivity, Activities)
	c.add(KindBoss, Bosses)
	c.add(KindComputed, Computed)
	for _, m := range Computed {
		c.denominators[m] = codec.DefaultDenominator
	}
	return c
}

func (c *Catalog) add(kind Kind, metrics []Metric) {
	for _, m := range metrics {
		c.kinds[m] = kind
		c.order = append(c.order, m)
	}
}

// Parse resolves a user-supplied name to a known metric.
func (c *Catalog) Parse(name string) (Metric, error) {
	m := Metric(Normalize(name))
	if _, ok := c.kinds[m]; !ok {
		return "", &UnknownMetricError{Name: name}
	}
	return m, nil
}

// Kind returns the classification of m.
func (c *Catalog) Kind(m Metric) (Kind, bool) {
	k, ok := c.kinds[m]
	return k, ok
}

// IsComputed reports whether m is a computed (ratio) metric.
func (c *Catalog) IsComputed(m Metric) bool {
	return c.kinds[m] == KindComputed
}

// Denominator returns the ratio denominator for a computed metric.
// Raw metrics return 1.
func (c *Catalog) Denominator(m Metric) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if d, ok := c.denominators[m]; ok {
		return d
	}
	return 1
}

// SetDenominator overrides the denominator of a computed metric.
func (c *Catalog) SetDenominator(m Metric, d int64) error {
	if !c.IsComputed(m) {
		return fmt.Errorf("metric %q is not computed: denominators apply to computed metrics only", m)
	}
	if d <= 0 {
		return fmt.Errorf("metric %q: denominator must be positive, got %d", m, d)
	}
	c.mu.Lock()
	c.denominators[m] = d
	c.mu.Unlock()
	return nil
}

// Policy returns the scaling policy for values of metric m.
//
// Computed metrics use FractionalRatio with their configured denominator.
// Every other metric, including unknown ones, uses Identity.
func (c *Catalog) Policy(m Metric) codec.Policy {
	if c.IsComputed(m) {
		return codec.FractionalRatio(c.Denominator(m))
	}
	return codec.Identity()
}

// All returns every metric in catalog order.
func (c *Catalog) All() []Metric {
	out := make([]Metric, len(c.order))
	copy(out, c.order)
	return out
}

// OfKind returns the metrics of one kind in catalog order.
func (c *Catalog) OfKind(kind Kind) []Metric {
	var out []Metric
	for _, m := range c.order {
		if c.kinds[m] == kind {
			out = append(out, m)
		}
	}
	return out
}
