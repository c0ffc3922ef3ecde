package pipeline

import "fmt"

// Producer computes a state value on first lookup.
type Producer func(ctx *Context) (any, error)

// State is the per-run cache of values detectors publish for later ones.
type State struct {
	values    map[string]any
	producers map[string]Producer
	busy      map[string]bool
}

func newState() *State {
	return &State{
		values:    make(map[string]any),
		producers: make(map[string]Producer),
		busy:      make(map[string]bool),
	}
}

// Has reports whether key holds a value or a producer.
func (s *State) Has(key string) bool {
	if _, ok := s.values[key]; ok {
		return true
	}
	_, ok := s.producers[key]
	return ok
}

// Keys returns the published keys (producers not yet run excluded).
func (s *State) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

// Publish stores v under key. Publishing a key twice is a collision.
func (c *Context) Publish(key string, v any) error {
	if c.state.Has(key) {
		return c.Collision("*", "*", "state %q published twice", key)
	}
	c.state.values[key] = v
	return nil
}

// Provide registers a producer computed on the first Lookup of key.
func (c *Context) Provide(key string, p Producer) error {
	if c.state.Has(key) {
		return c.Collision("*", "*", "state %q published twice", key)
	}
	c.state.producers[key] = p
	return nil
}

// Lookup returns the state under key as T. A missing key fails with
// PrerequisiteMissing naming the current feature.
func Lookup[T any](c *Context, key string) (T, error) {
	var zero T
	v, ok := c.state.values[key]
	if !ok {
		p, lazy := c.state.producers[key]
		if !lazy {
			return zero, c.Missing("*", "*", "state %q not resolved by an earlier detector", key)
		}
		if c.state.busy[key] {
			return zero, fmt.Errorf("pipeline: state %q depends on itself", key)
		}
		c.state.busy[key] = true
		val, err := p(c)
		delete(c.state.busy, key)
		if err != nil {
			return zero, err
		}
		delete(c.state.producers, key)
		c.state.values[key] = val
		v = val
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("pipeline: state %q holds %T, want %T", key, v, zero)
	}
	return t, nil
}
