package flow

import (
	"fmt"
	"sync"
)

// DependencyGraph declares, for every observed field, the fields it directly
// depends on.
type DependencyGraph struct {
	dependsOn  [fieldCount]FieldSet
	dependents [fieldCount]FieldSet
}

// DefaultDependencies is the dependency table of the intake wizard.
var DefaultDependencies = map[Field][]Field{
	FieldSelectedPatient:         nil,
	FieldPatientDetails:          {FieldSelectedPatient},
	FieldInsertionSite:           {FieldSelectedPatient},
	FieldIssueDate:               {FieldSelectedPatient},
	FieldIssueCategory:           {FieldSelectedPatient},
	FieldSpecifiedProductDetails: {FieldSelectedPatient},
	FieldProductType:             {FieldSpecifiedProductDetails},
	FieldProductReturn:           {FieldTSGInterview},
	FieldTSGInterview:            {FieldProductType, FieldSelectedPatient, FieldIssueCategory, FieldSpecifiedProductDetails},
	FieldUserInfo:                {FieldSelectedPatient},
	FieldTransientFormData:       {FieldIssueDate},
	FieldFlags:                   {FieldIssueCategory},
}

var (
	defaultGraphOnce sync.Once
	defaultGraph     *DependencyGraph
)

// DefaultDependencyGraph returns the graph built from DefaultDependencies.
func DefaultDependencyGraph() *DependencyGraph {
	defaultGraphOnce.Do(func() {
		g, err := NewDependencyGraph(DefaultDependencies)
		if err != nil {
			panic(err)
		}
		defaultGraph = g
	})
	return defaultGraph
}

// NewDependencyGraph builds a graph from a field → direct dependencies table.
func NewDependencyGraph(deps map[Field][]Field) (*DependencyGraph, error) {
	g := &DependencyGraph{}
	for field, on := range deps {
		if !field.Valid() {
			return nil, fmt.Errorf("dependency graph: invalid field %d", uint8(field))
		}
		for _, dep := range on {
			if !dep.Valid() {
				return nil, fmt.Errorf("dependency graph: %s depends on invalid field %d", field, uint8(dep))
			}
			if dep == field {
				return nil, fmt.Errorf("dependency graph: %s depends on itself", field)
			}
			g.dependsOn[field] = g.dependsOn[field].Add(dep)
			g.dependents[dep] = g.dependents[dep].Add(field)
		}
	}
	return g, nil
}

// DependsOn returns the direct dependencies of f.
func (g *DependencyGraph) DependsOn(f Field) FieldSet {
	if g == nil || !f.Valid() {
		return 0
	}
	return g.dependsOn[f]
}

// Dependents returns the fields that directly depend on f.
func (g *DependencyGraph) Dependents(f Field) FieldSet {
	if g == nil || !f.Valid() {
		return 0
	}
	return g.dependents[f]
}

type closureKey struct {
	graph *DependencyGraph
	field Field
}

// ClosureCache memoizes dependent closures per (graph, starting field). One
// cache may be shared by resolvers of different graphs.
type ClosureCache struct {
	mu      sync.RWMutex
	entries map[closureKey]FieldSet
	hits    uint64
	misses  uint64
}

func NewClosureCache() *ClosureCache {
	return &ClosureCache{entries: make(map[closureKey]FieldSet)}
}

func (c *ClosureCache) get(key closureKey) (FieldSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return set, ok
}

func (c *ClosureCache) put(key closureKey, set FieldSet) {
	c.mu.Lock()
	c.entries[key] = set
	c.mu.Unlock()
}

// Len returns the number of memoized closures.
func (c *ClosureCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns cache hits and misses.
func (c *ClosureCache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *ClosureCache) Reset() {
	c.mu.Lock()
	c.entries = make(map[closureKey]FieldSet)
	c.hits, c.misses = 0, 0
	c.mu.Unlock()
}

// Resolver computes which fields must be discarded when others change.
type Resolver struct {
	graph *DependencyGraph
	cache *ClosureCache
}

// NewResolver binds a graph to a cache. Nil arguments fall back to the
// default graph and a private cache.
func NewResolver(graph *DependencyGraph, cache *ClosureCache) *Resolver {
	if graph == nil {
		graph = DefaultDependencyGraph()
	}
	if cache == nil {
		cache = NewClosureCache()
	}
	return &Resolver{graph: graph, cache: cache}
}

func (r *Resolver) Graph() *DependencyGraph { return r.graph }

func (r *Resolver) Cache() *ClosureCache { return r.cache }

// Closure returns f and everything that depends on it, directly or
// transitively.
func (r *Resolver) Closure(f Field) FieldSet {
	if !f.Valid() {
		return 0
	}
	key := closureKey{graph: r.graph, field: f}
	if set, ok := r.cache.get(key); ok {
		return set
	}

	seen := NewFieldSet(f)
	queue := []Field{f}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dep := range r.graph.Dependents(current).Fields() {
			if seen.Has(dep) {
				continue
			}
			seen = seen.Add(dep)
			queue = append(queue, dep)
		}
	}

	r.cache.put(key, seen)
	return seen
}

// Invalidated returns the union of the closures of every changed field.
func (r *Resolver) Invalidated(changed FieldSet) FieldSet {
	var out FieldSet
	for _, f := range changed.Fields() {
		out = out.Union(r.Closure(f))
	}
	return out
}

// Orphans returns the collected fields whose dependencies are absent. A
// dependency on the selected patient counts as met in guest mode, where no
// patient is ever selected.
func (r *Resolver) Orphans(s State) FieldSet {
	present := PresentFields(s)
	if s.Mode == ModeGuest {
		present = present.Add(FieldSelectedPatient)
	}
	var out FieldSet
	for _, f := range present.Fields() {
		if f == FieldTransientFormData || f == FieldFlags {
			continue
		}
		if !fieldPresent(&s, f) {
			continue
		}
		deps := r.graph.DependsOn(f)
		if deps&present != deps {
			out = out.Add(f)
		}
	}
	return out
}
