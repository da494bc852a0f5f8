package gpt

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"sarchain/internal/engine"
	"sarchain/internal/logging"
	"sarchain/internal/toolexec"
)

const (
	defaultBinary = "gpt"
	defaultFormat = "BEAM-DIMAP"
)

// Runner runs gpt to completion.
type Runner interface {
	RunBlocking(ctx context.Context, name string, args []string, dir string) (toolexec.Result, error)
}

type product struct {
	label   string
	path    string
	op      *engine.Operation
	sources []*product
}

func (p *product) Name() string { return p.label }

// Client is a graph-backed engine.Client.
type Client struct {
	mu      sync.Mutex
	runner  Runner
	binary  string
	format  string
	workDir string
	logger  *slog.Logger
	graphs  int
}

var _ engine.Client = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBinary overrides the gpt executable.
func WithBinary(binary string) Option {
	return func(c *Client) {
		if strings.TrimSpace(binary) != "" {
			c.binary = binary
		}
	}
}

// WithFormat overrides the product format written by graphs.
func WithFormat(format string) Option {
	return func(c *Client) {
		if strings.TrimSpace(format) != "" {
			c.format = format
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a Client writing graphs under workDir.
func New(runner Runner, workDir string, opts ...Option) *Client {
	c := &Client{
		runner:  runner,
		binary:  defaultBinary,
		format:  defaultFormat,
		workDir: workDir,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "gpt")
	return c
}

// Read returns a handle backed by an existing product on disk.
func (c *Client) Read(_ context.Context, path string) (engine.Handle, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &engine.OperationError{Operation: "Read", Err: fmt.Errorf("%s does not exist", path)}
		}
		return nil, &engine.OperationError{Operation: "Read", Err: err}
	}
	return &product{label: productLabel(path), path: path}, nil
}

// Invoke records op against inputs and returns a pending product.
func (c *Client) Invoke(_ context.Context, op engine.Operation, inputs map[engine.Role]engine.Handle) (engine.Handle, error) {
	if strings.TrimSpace(op.Name) == "" {
		return nil, &engine.OperationError{Operation: "(unnamed)", Err: errors.New("operator name is required")}
	}
	if err := engine.CheckInputs(op, inputs); err != nil {
		return nil, err
	}
	roles := op.InputRoles()
	sources := make([]*product, 0, len(roles))
	for _, role := range roles {
		src, ok := inputs[role].(*product)
		if !ok {
			return nil, &engine.OperationError{Operation: op.Name, Err: fmt.Errorf("%s input is not a gpt product", role)}
		}
		sources = append(sources, src)
	}
	recorded := op
	recorded.Params = append(engine.Params(nil), op.Params...)
	label := sources[len(sources)-1].label + "+" + op.Name
	return &product{label: label, op: &recorded, sources: sources}, nil
}

// Write renders the product graph and runs gpt. A failed run is reported as
// an OperationError naming the product.
func (c *Client) Write(ctx context.Context, h engine.Handle, path string) error {
	p, ok := h.(*product)
	if !ok || p == nil {
		return &engine.OperationError{Operation: "Write", Err: fmt.Errorf("handle %T is not a gpt product", h)}
	}

	graph, err := c.Graph(p, path)
	if err != nil {
		return &engine.OperationError{Operation: "Write", Err: err}
	}
	graphPath, err := c.saveGraph(path, graph)
	if err != nil {
		return &engine.OperationError{Operation: "Write", Err: err}
	}

	logger := logging.WithContext(ctx, c.logger)
	logger.Info("running gpt graph",
		logging.String("graph", graphPath),
		logging.String("target", path),
	)
	result, err := c.runner.RunBlocking(ctx, c.binary, []string{graphPath}, "")
	if err != nil {
		return &engine.OperationError{Operation: p.label, Err: err}
	}
	logger.Debug("gpt graph finished",
		logging.String("graph", graphPath),
		logging.Duration("duration", result.Duration),
	)

	p.path = path
	p.op = nil
	p.sources = nil
	return nil
}

// Graph renders the gpt graph that writes h to path.
func (c *Client) Graph(h engine.Handle, path string) ([]byte, error) {
	p, ok := h.(*product)
	if !ok || p == nil {
		return nil, fmt.Errorf("handle %T is not a gpt product", h)
	}
	b := newGraphBuilder()
	id, err := b.add(p)
	if err != nil {
		return nil, err
	}
	b.write(id, path, c.format)
	return b.marshal()
}

func (c *Client) saveGraph(target string, graph []byte) (string, error) {
	if err := os.MkdirAll(c.workDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure graph directory: %w", err)
	}
	c.mu.Lock()
	c.graphs++
	seq := c.graphs
	c.mu.Unlock()

	name := fmt.Sprintf("%03d_%s.xml", seq, productLabel(target))
	graphPath := filepath.Join(c.workDir, name)
	if err := os.WriteFile(graphPath, graph, 0o644); err != nil {
		return "", fmt.Errorf("write graph: %w", err)
	}
	return graphPath, nil
}

func productLabel(path string) string {
	base := filepath.Base(strings.TrimRight(path, string(filepath.Separator)))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
