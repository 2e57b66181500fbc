package evaluator

import "fmt"

// Registry is a read-only-after-init method lookup table, mirroring the
// teacher's routing-strategy and policy-action registries: a fixed name ->
// implementation map populated once at startup.
type Registry struct {
	methods map[string]Method
}

// NewRegistry returns an empty registry. Register methods before serving
// traffic; the registry is not safe to mutate concurrently with lookups.
func NewRegistry() *Registry {
	return &Registry{methods: make(map[string]Method)}
}

// Register adds a method under its own Name(). A later call with the same
// name replaces the earlier one, matching how the teacher's strategy
// registry lets a custom strategy shadow a built-in by name.
func (r *Registry) Register(m Method) {
	r.methods[m.Name()] = m
}

// Get looks up a method by name.
func (r *Registry) Get(name string) (Method, error) {
	m, ok := r.methods[name]
	if !ok {
		return nil, fmt.Errorf("evaluator: unknown method %q", name)
	}
	return m, nil
}

// Names returns every registered method name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	return names
}

// NewDefaultRegistry returns a Registry with all six built-in methods
// registered: latency plus the five LLM-judge methods, each talking to judge
// through the same reentrant call path.
func NewDefaultRegistry(judge Judge) *Registry {
	r := NewRegistry()
	r.Register(NewLatencyMethod())
	for _, spec := range defaultJudgeSpecs() {
		r.Register(newJudgeMethod(spec, judge))
	}
	return r
}
