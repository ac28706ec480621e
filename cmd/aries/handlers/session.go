// Package handlers implements the aries commands.
//
// Each exported function runs one command. Configuration and secrets are
// loaded here, the provisioning engine is wired to the Hetzner Cloud client,
// the state backend and the SSH dialer, and the results are rendered to
// stdout. Package-level factory variables can be replaced in tests.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/imamik/aries/internal/cloudinit"
	"github.com/imamik/aries/internal/config"
	"github.com/imamik/aries/internal/platform/hcloud"
	"github.com/imamik/aries/internal/platform/s3"
	"github.com/imamik/aries/internal/provisioning"
	"github.com/imamik/aries/internal/provisioning/resources"
	"github.com/imamik/aries/internal/state"
)

// Log formats accepted by --log-format.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Options holds the global flags.
type Options struct {
	ConfigPath  string
	LogFormat   string
	MetricsFile string
}

// Factory function variables, replaced in tests.
var (
	getenv = os.Getenv

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	isTerminal = func() bool {
		fd := os.Stdout.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}

	newInfraClient = func(token string, timeouts *config.Timeouts) hcloud.InfrastructureManager {
		return hcloud.NewRealClient(token, hcloud.WithTimeouts(timeouts))
	}

	newDialer = resources.NewSSHDialer

	newStateBackend = stateBackend

	loadTimeouts = config.LoadTimeouts
)

// session is everything a command needs to talk to the stack.
type session struct {
	cfg         *config.Config
	infra       hcloud.InfrastructureManager
	engine      *provisioning.Engine
	metrics     *provisioning.Metrics
	metricsFile string
	styled      bool
}

// openSession loads the configuration, checks the secrets the command needs
// and wires the engine.
func openSession(ctx context.Context, opts *Options, require func(*config.Config) error) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := require(cfg); err != nil {
		return nil, err
	}

	observer, err := newObserver(opts.LogFormat)
	if err != nil {
		return nil, err
	}

	backend, err := newStateBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	timeouts := loadTimeouts()
	infra := newInfraClient(cfg.HCloudToken, timeouts)

	s := &session{
		cfg:         cfg,
		infra:       infra,
		metricsFile: opts.MetricsFile,
		styled:      isTerminal(),
	}
	engineOpts := []provisioning.Option{
		provisioning.WithObserver(observer.WithFields(map[string]string{"stack": cfg.Name})),
		provisioning.WithOutputs(resources.Outputs(cfg)),
	}
	if opts.MetricsFile != "" {
		s.metrics = provisioning.NewMetrics()
		engineOpts = append(engineOpts, provisioning.WithMetrics(s.metrics))
	}

	handlers := resources.Handlers(infra, newDialer(cfg.Connection, timeouts))
	s.engine = provisioning.NewEngine(backend, handlers, engineOpts...)
	return s, nil
}

// close writes the metrics file, if requested, and returns err joined with
// any write failure.
func (s *session) close(err error) error {
	if s.metrics == nil {
		return err
	}
	if werr := s.metrics.WriteToTextfile(s.metricsFile); werr != nil {
		return errors.Join(err, fmt.Errorf("failed to write metrics: %w", werr))
	}
	return err
}

// loadConfig reads the configuration from --config or the nearest aries.yaml
// and resolves secrets from the environment.
func loadConfig(opts *Options) (*config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		found, err := config.FindConfigFile()
		if err != nil {
			return nil, fmt.Errorf("%w (run 'aries init' or pass --config)", err)
		}
		path = found
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ResolveSecrets(getenv)
	return cfg, nil
}

func newObserver(format string) (provisioning.Observer, error) {
	switch format {
	case "", LogFormatText:
		return provisioning.NewConsoleObserver(), nil
	case LogFormatJSON:
		return provisioning.NewJSONObserver(stderr), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (expected %s or %s)", format, LogFormatText, LogFormatJSON)
	}
}

// stateBackend returns the backend selected by the state section.
func stateBackend(ctx context.Context, cfg *config.Config) (state.Backend, error) {
	switch cfg.State.Backend {
	case config.BackendS3:
		client, err := s3.NewClient(ctx, cfg.S3Endpoint(), cfg.S3Region(),
			cfg.State.S3.AccessKey, cfg.State.S3.SecretKey, s3.WithPathStyle())
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		return state.NewS3Backend(client, cfg.State.S3.Bucket, cfg.State.S3.Key, cfg.Name), nil
	default:
		return state.NewLocalBackend(cfg.State.Path, cfg.Name), nil
	}
}

// desiredResources renders the user data and builds the declarations.
func desiredResources(cfg *config.Config) ([]provisioning.Desired, error) {
	userData, err := cloudinit.RenderFile(cfg.Server.UserData.Template, cloudinit.Vars{
		Hostname:     cfg.Server.Name,
		Location:     cfg.Location,
		Stack:        cfg.Name,
		SSHPublicKey: cfg.SSHKey.PublicKey,
		VolumeName:   cfg.Volume.Name,
		User:         cfg.Server.UserData.Vars,
	})
	if err != nil {
		return nil, err
	}
	return resources.Build(cfg, userData)
}
