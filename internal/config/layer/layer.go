// Package layer stacks configuration sources by precedence and merges
// them into one map.
package layer

import (
	"sort"
	"sync"
	"time"
)

// Source identifies where a layer came from.
type Source uint8

// Configuration sources, lowest precedence first.
const (
	SourceBuiltin Source = iota
	SourceUser
	SourceProject
	SourceEnv
	SourceArgs
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceBuiltin:
		return "builtin"
	case SourceUser:
		return "user"
	case SourceProject:
		return "project"
	case SourceEnv:
		return "environment"
	case SourceArgs:
		return "arguments"
	default:
		return "unknown"
	}
}

// Priority returns the default merge priority of a source. Higher values
// override lower ones.
func (s Source) Priority() int {
	return int(s) * 100
}

// Layer is one configuration source.
type Layer struct {
	Name     string
	Source   Source
	Priority int
	Path     string
	Data     map[string]any
	ModTime  time.Time
}

// New creates a layer with the source's default priority.
func New(name string, source Source, data map[string]any) *Layer {
	return &Layer{Name: name, Source: source, Priority: source.Priority(), Data: data, ModTime: time.Now()}
}

// Stack holds layers keyed by name. It is safe for concurrent use.
type Stack struct {
	mu     sync.RWMutex
	layers map[string]*Layer
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{layers: make(map[string]*Layer)}
}

// Set adds a layer or replaces the layer with the same name.
func (s *Stack) Set(l *Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers[l.Name] = l
}

// Remove drops a layer.
func (s *Stack) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.layers, name)
}

// Layers returns the layers in merge order: ascending priority, then name.
func (s *Stack) Layers() []*Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Layer, 0, len(s.layers))
	for _, l := range s.layers {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Merged merges every layer into a fresh map.
func (s *Stack) Merged() map[string]any {
	out := make(map[string]any)
	for _, l := range s.Layers() {
		DeepMerge(out, l.Data)
	}
	return out
}
