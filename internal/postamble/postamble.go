// Package postamble renders the target graph into the two text blocks
// the host makefile hooks accept: the extra-rules section and the
// clean-file list. The graph is built lazily, exactly once per Cache,
// no matter how many times or in what order the two hooks fire.
package postamble

import (
	"strings"
	"sync"

	"github.com/postmk-build/postmk/internal/target"
)

// Cache memoizes one graph construction behind both hook operations.
// The build func runs at most once; its result, error included, is
// what every later call sees.
type Cache struct {
	build func() (*target.Graph, error)

	once  sync.Once
	graph *target.Graph
	err   error
}

// New wraps a graph constructor. The constructor is not called until a
// hook operation needs the graph.
func New(build func() (*target.Graph, error)) *Cache {
	return &Cache{build: build}
}

func (c *Cache) resolve() (*target.Graph, error) {
	c.once.Do(func() {
		c.graph, c.err = c.build()
	})
	return c.graph, c.err
}

// ExtraRules renders every target's rule in canonical graph order,
// then a closing rule hanging the optional leaf targets off the host
// tool's default goal. Repeated calls return byte-identical text.
func (c *Cache) ExtraRules() (string, error) {
	graph, err := c.resolve()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, t := range graph.Targets {
		writeln(&sb, t.Output, ": ", strings.Join(t.Prerequisites(), " "))
		writeln(&sb, "\t", t.Recipe.Render(t.Output, t.LinkInputs()))
		writeln(&sb)
	}

	// leaves attach to the default goal so `make` alone builds them
	var leaves []string
	for _, t := range graph.Targets[1:] {
		leaves = append(leaves, t.Output)
	}
	if len(leaves) > 0 {
		writeln(&sb, "all :: ", strings.Join(leaves, " "))
	} else {
		writeln(&sb, "all :: ", graph.Core().Output)
	}

	return sb.String(), nil
}

// CleanList renders the accumulated cleanup-file list, one file per
// line, in graph construction order.
func (c *Cache) CleanList() (string, error) {
	graph, err := c.resolve()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, f := range graph.CleanFiles {
		writeln(&sb, f)
	}
	return sb.String(), nil
}

func write(sb *strings.Builder, s ...string) {
	for _, str := range s {
		sb.WriteString(str)
	}
}

func writeln(sb *strings.Builder, s ...string) {
	write(sb, s...)
	sb.WriteByte('\n')
}
