package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"sarchain/internal/config"
	"sarchain/internal/ledger"
	"sarchain/internal/logging"
	"sarchain/internal/workflow"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	managerOpts  []workflow.Option

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	closeLog   logging.CloseFunc
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, managerOpts ...workflow.Option) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		managerOpts:  managerOpts,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		var level string
		if c.logLevelFlag != nil {
			level = strings.TrimSpace(*c.logLevelFlag)
		}
		logger, closeLog, err := logging.NewFromConfig(cfg, level)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
		c.closeLog = closeLog
	})
	return c.logger, c.loggerErr
}

// closeLogger releases the log file opened by ensureLogger.
func (c *commandContext) closeLogger() {
	if c.closeLog == nil {
		return
	}
	if err := c.closeLog(); err != nil {
		fmt.Fprintf(os.Stderr, "close log file: %v\n", err)
	}
	c.closeLog = nil
}

func (c *commandContext) newManager(extra ...workflow.Option) (*workflow.Manager, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	opts := append(append([]workflow.Option(nil), c.managerOpts...), extra...)
	return workflow.NewManager(cfg, logger, opts...), logger, nil
}

// withManager runs fn against a manager that records into the ledger. The
// context is cancelled on SIGINT or SIGTERM.
func (c *commandContext) withManager(cmd *cobra.Command, fn func(context.Context, *workflow.Manager) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	defer c.closeLogger()

	var opts []workflow.Option
	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		logger.Warn("ledger unavailable; runs will not be recorded", logging.Error(err))
	} else {
		defer store.Close()
		opts = append(opts, workflow.WithLedger(store))
	}

	mgr, _, err := c.newManager(opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return workflow.Dispatch(logger, fn(ctx, mgr))
}

func (c *commandContext) withLedger(fn func(*ledger.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
