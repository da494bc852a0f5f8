package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"sarchain/internal/engine"
)

// FakeProduct is the handle FakeEngine hands out.
type FakeProduct struct {
	Label string
}

func (p *FakeProduct) Name() string { return p.Label }

// Invocation records one FakeEngine.Invoke call.
type Invocation struct {
	Operation string
	Inputs    map[engine.Role]string
}

// Written records one FakeEngine.Write call.
type Written struct {
	Product string
	Path    string
}

// FakeEngine is a recording engine.Client. Products are labelled with the
// operator chain that produced them and Write stores that label on disk.
type FakeEngine struct {
	mu          sync.Mutex
	Reads       []string
	Invocations []Invocation
	Writes      []Written
	// FailOperation makes Invoke fail for the named operator.
	FailOperation string
	// FailWrite makes Write return the error.
	FailWrite error
}

var _ engine.Client = (*FakeEngine)(nil)

func (f *FakeEngine) Read(_ context.Context, path string) (engine.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads = append(f.Reads, path)
	return &FakeProduct{Label: filepath.Base(path)}, nil
}

func (f *FakeEngine) Invoke(_ context.Context, op engine.Operation, inputs map[engine.Role]engine.Handle) (engine.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := engine.CheckInputs(op, inputs); err != nil {
		return nil, err
	}
	names := make(map[engine.Role]string, len(inputs))
	parts := make([]string, 0, len(inputs))
	for _, role := range op.InputRoles() {
		names[role] = inputs[role].Name()
		parts = append(parts, inputs[role].Name())
	}
	f.Invocations = append(f.Invocations, Invocation{Operation: op.Name, Inputs: names})
	if op.Name == f.FailOperation {
		return nil, &engine.OperationError{Operation: op.Name, Err: fmt.Errorf("fake failure")}
	}
	return &FakeProduct{Label: fmt.Sprintf("%s(%s)", op.Name, strings.Join(parts, ","))}, nil
}

func (f *FakeEngine) Write(_ context.Context, product engine.Handle, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWrite != nil {
		return f.FailWrite
	}
	f.Writes = append(f.Writes, Written{Product: product.Name(), Path: path})
	return os.WriteFile(path, []byte(product.Name()), 0o644)
}

// OperationNames returns the invoked operator names in call order.
func (f *FakeEngine) OperationNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.Invocations))
	for _, inv := range f.Invocations {
		names = append(names, inv.Operation)
	}
	return names
}

// WrittenPaths returns the written artifact paths in call order.
func (f *FakeEngine) WrittenPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	paths := make([]string, 0, len(f.Writes))
	for _, w := range f.Writes {
		paths = append(paths, w.Path)
	}
	return paths
}
