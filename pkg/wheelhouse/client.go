package wheelhouse

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/wheelhouse-project/wheelhouse/internal/fleet"
	"github.com/wheelhouse-project/wheelhouse/internal/repository"
	"github.com/wheelhouse-project/wheelhouse/internal/requirements"
	"github.com/wheelhouse-project/wheelhouse/internal/rollout"
	"github.com/wheelhouse-project/wheelhouse/internal/transport"
	"github.com/wheelhouse-project/wheelhouse/pkg/config"
	"github.com/wheelhouse-project/wheelhouse/pkg/logging"
	"github.com/wheelhouse-project/wheelhouse/pkg/model"
)

// Client provides high-level rollout operations over one fleet configuration
// and its wheel repository.
type Client struct {
	cfg    *config.Config
	repo   *repository.Repository
	runner transport.Runner
	logger *logging.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithRunner replaces the default ssh/scp command runner. Intended for tests
// and for embedders that already hold a connection pool.
func WithRunner(r transport.Runner) Option {
	return func(c *Client) { c.runner = r }
}

// WithLogger replaces the default global logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// DeployOptions configures a Deploy call.
type DeployOptions struct {
	Selector         string // target selector, [user@]host[:path]; empty matches all
	RequirementsPath string // defaults to the path named by the configuration
	AutoConfirm      bool   // apply without asking; false declines every target
}

// DeployResult summarizes a finished rollout run.
type DeployResult struct {
	RunID        string
	Done         int
	Declined     int
	Failed       int
	Unresolvable bool
	ExitCode     int
	Report       string
}

// Open opens a Client from an explicit configuration file path.
func Open(configPath string, opts ...Option) (*Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("wheelhouse open: %w", err)
	}
	return newClient(cfg, opts)
}

// Discover opens a Client by walking up from dir to find the configuration
// file, the way the CLI does.
func Discover(dir string, opts ...Option) (*Client, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("wheelhouse discover: %w", err)
	}
	cfg, err := config.Discover(abs)
	if err != nil {
		return nil, fmt.Errorf("wheelhouse discover: %w", err)
	}
	return newClient(cfg, opts)
}

func newClient(cfg *config.Config, opts []Option) (*Client, error) {
	repo, err := repository.Open(cfg.RepositoryPath())
	if err != nil {
		return nil, fmt.Errorf("wheelhouse open repository: %w", err)
	}
	c := &Client{
		cfg:    cfg,
		repo:   repo,
		runner: transport.NewExecRunner(),
		logger: logging.Global(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AddArtifact registers a wheel file into the repository.
func (c *Client) AddArtifact(path string) (model.Artifact, error) {
	return c.repo.Register(path)
}

// Artifacts lists the registered artifacts ordered by name, version, tag.
func (c *Client) Artifacts() []model.Artifact {
	var out []model.Artifact
	for a := range c.repo.List() {
		out = append(out, a)
	}
	return out
}

// History returns the repository install log, oldest first.
func (c *Client) History() ([]model.LogRecord, error) {
	return c.repo.History()
}

// Targets resolves a selector against the configured fleet and returns the
// matching target IDs in configuration order.
func (c *Client) Targets(selector string) ([]string, error) {
	targets, err := fleet.Resolve(selector, fleet.FromConfig(c.cfg))
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(targets))
	for i, t := range targets {
		ids[i] = t.ID()
	}
	return ids, nil
}

// Deploy reconciles the selected targets against the requirements file and
// returns the run summary. A declined or failed target never aborts the
// others; check ExitCode for the aggregate result.
func (c *Client) Deploy(ctx context.Context, opts DeployOptions) (*DeployResult, error) {
	targets, err := fleet.Resolve(opts.Selector, fleet.FromConfig(c.cfg))
	if err != nil {
		return nil, err
	}

	reqPath := opts.RequirementsPath
	if reqPath == "" {
		reqPath = c.cfg.RequirementsPath()
	}
	reqs, err := requirements.ParseFile(reqPath)
	if err != nil {
		return nil, err
	}

	orch := rollout.New(c.repo, transport.NewEnv(c.runner), rollout.AutoConfirmer(opts.AutoConfirm), c.logger)
	summary := orch.Run(ctx, targets, reqs)

	return &DeployResult{
		RunID:        summary.RunID,
		Done:         summary.Done,
		Declined:     summary.Declined,
		Failed:       summary.Failed,
		Unresolvable: summary.Unresolvable,
		ExitCode:     summary.ExitCode(),
		Report:       summary.Format(),
	}, nil
}
