package app

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/choice"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/config"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/domain/parameter"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/jobfile"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/logging"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/metrics"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/remote"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/repository"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/resolver"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/roles"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/secrets"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/shell"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/source"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Domain: Configuration Management
// This file wires process configuration, the job file and the service together

// runtime holds everything a command needs; Close releases the stores it opened
type runtime struct {
	cfg      *config.Config
	logger   *logrus.Logger
	loader   *jobfile.Loader
	job      *jobfile.Job
	service  *choice.Service
	registry *prometheus.Registry

	// roles consulted after the job file's own grants; nil when none are configured
	roles  roles.Provider
	grants *roles.GrantStore
}

// settings reads configuration and builds the logger
func (a *App) settings() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return nil, nil, err
	}

	logCfg := cfg.Logging()
	if a.verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// newRuntime loads the job file and wires the choice service
func (a *App) newRuntime() (*runtime, error) {
	cfg, logger, err := a.settings()
	if err != nil {
		return nil, err
	}

	loader := jobfile.NewLoader(".")
	job, err := loader.Load(a.jobFile)
	if err != nil {
		return nil, err
	}
	logger.WithField("file", job.Path).Debug("job file loaded")

	rt := &runtime{
		cfg:      cfg,
		logger:   logger,
		loader:   loader,
		job:      job,
		registry: prometheus.NewRegistry(),
	}

	if err := rt.openRoleProviders(); err != nil {
		return nil, err
	}

	rt.service = choice.New(choice.Options{
		Loader:   source.NewFileLoader(remote.NewDefaultRegistry(cfg.Remote())),
		Lister:   rt.newLister(),
		Observer: metrics.New(rt.registry),
		Logger:   logger,
	})
	return rt, nil
}

// openRoleProviders chains the casbin policy and the grant store when configured.
// The default grant store is only used once it exists.
func (rt *runtime) openRoleProviders() error {
	var chain roles.Chain

	if rt.cfg.UsesCasbin() {
		provider, err := roles.LoadCasbinProvider(rt.cfg.RoleModelFile, rt.cfg.RolePolicyFile)
		if err != nil {
			return err
		}
		chain = append(chain, provider)
	}

	path, explicit, err := grantStorePath(rt.cfg)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(path); explicit || statErr == nil {
		store, err := roles.OpenGrantStore(path)
		if err != nil {
			return err
		}
		rt.grants = store
		chain = append(chain, store)
	}

	if len(chain) > 0 {
		rt.roles = chain
	}
	return nil
}

func (rt *runtime) newLister() *repository.Lister {
	connector := repository.NewSVNConnector(rt.cfg.SVNCommand, shell.NewExecutor(nil))

	manager, err := newSecretsManager(rt.cfg)
	if err != nil {
		rt.logger.WithError(err).Warn("credential store unavailable, secret references will not resolve")
		return repository.NewLister(connector, nil, rt.logger)
	}
	return repository.NewLister(connector, secrets.NewResolver(manager), rt.logger)
}

// caller combines the job file grants with the configured providers
func (rt *runtime) caller(identity string) resolver.Caller {
	var provider roles.Provider = rt.job.RoleProvider()
	if rt.roles != nil {
		provider = roles.Chain{provider, rt.roles}
	}
	return resolver.Caller{Identity: identity, Roles: provider}
}

func (rt *runtime) parameter(name string) (*parameter.Parameter, error) {
	p, ok := rt.job.Parameter(name)
	if !ok {
		return nil, fmt.Errorf("unknown parameter %q (defined: %v)", name, rt.job.Names())
	}
	return p, nil
}

// Close releases the grant store
func (rt *runtime) Close() error {
	var result *multierror.Error
	if rt.grants != nil {
		if err := rt.grants.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if closer, ok := rt.logger.Out.(io.Closer); ok && rt.cfg.LogFile != "" {
		if err := closer.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// grantStorePath returns the configured path, or the default one with explicit=false
func grantStorePath(cfg *config.Config) (path string, explicit bool, err error) {
	if cfg.GrantStore != "" {
		return cfg.GrantStore, true, nil
	}
	path, err = roles.DefaultGrantStorePath()
	return path, false, err
}
