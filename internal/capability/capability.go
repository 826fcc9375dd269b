// Package capability answers "what is installed on this machine" once per
// run, e.g. which browsers can produce screenshots.
package capability

import (
	"context"
	"os/exec"
	"sort"
	"strings"
	"sync"
)

type Set map[string]struct{}

func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[strings.ToLower(n)] = struct{}{}
	}
	return s
}

func (s Set) Has(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}

func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type Prober interface {
	Probe(ctx context.Context) (Set, error)
}

// Cache queries its prober on first use and serves that answer for the rest
// of its lifetime, errors included.
type Cache struct {
	prober Prober
	once   sync.Once
	set    Set
	err    error
}

func NewCache(p Prober) *Cache {
	return &Cache{
		prober: p,
	}
}

func (c *Cache) Probe(ctx context.Context) (Set, error) {
	c.once.Do(func() {
		c.set, c.err = c.prober.Probe(ctx)
	})
	return c.set, c.err
}

// ExecutableProber reports a capability as available when any of its
// candidate executables is on PATH.
type ExecutableProber struct {
	Candidates map[string][]string
	LookPath   func(string) (string, error)
}

func NewBrowserProber() *ExecutableProber {
	return &ExecutableProber{
		Candidates: map[string][]string{
			"chrome":  {"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome"},
			"firefox": {"firefox"},
			"edge":    {"microsoft-edge", "microsoft-edge-stable", "msedge"},
			"safari":  {"safaridriver"},
		},
		LookPath: exec.LookPath,
	}
}

func (p *ExecutableProber) Probe(ctx context.Context) (Set, error) {
	lookPath := p.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	set := NewSet()
	for name, executables := range p.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, e := range executables {
			if _, err := lookPath(e); err == nil {
				set[strings.ToLower(name)] = struct{}{}
				break
			}
		}
	}
	return set, nil
}
