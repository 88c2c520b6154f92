package notifier

import (
	"context"
	"fmt"
	"sort"
)

// Collector is one site adapter. Collect returns the notices it found; an
// empty result is not an error. Scraping details live entirely behind this
// interface.
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]NoticeRecord, error)
}

// Registry maps source identifiers to collector implementations. It is
// populated once at startup and read-only afterwards.
type Registry struct {
	collectors map[string]Collector
}

func NewRegistry() *Registry {
	return &Registry{collectors: make(map[string]Collector)}
}

func (r *Registry) Register(c Collector) error {
	name := normalizeField(c.Name())
	if name == "" {
		return fmt.Errorf("collector has empty name")
	}
	if _, ok := r.collectors[name]; ok {
		return fmt.Errorf("collector %q already registered", name)
	}
	r.collectors[name] = c
	return nil
}

func (r *Registry) Lookup(name string) (Collector, bool) {
	c, ok := r.collectors[normalizeField(name)]
	return c, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.collectors))
	for n := range r.collectors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// CollectorFunc adapts a plain function into a Collector.
type CollectorFunc struct {
	SourceName string
	Fn         func(ctx context.Context) ([]NoticeRecord, error)
}

func (c CollectorFunc) Name() string { return c.SourceName }

func (c CollectorFunc) Collect(ctx context.Context) ([]NoticeRecord, error) {
	return c.Fn(ctx)
}
