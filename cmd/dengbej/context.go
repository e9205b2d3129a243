package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"dengbej/internal/config"
	"dengbej/internal/jobs"
	"dengbej/internal/logging"
)

const defaultEnvFile = ".env"

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	envFileFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag, envFileFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		envFileFlag:  envFileFlag,
	}
}

// loadEnv applies the env file without overriding variables already set.
// The default file is optional; an explicit one must exist.
func (c *commandContext) loadEnv() error {
	path := ""
	if c.envFileFlag != nil {
		path = strings.TrimSpace(*c.envFileFlag)
	}
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil {
			if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
				cfg.Logging.Level = level
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// cliLogger logs to stderr so command output on stdout stays clean.
func (c *commandContext) cliLogger() *slog.Logger {
	level, format := "warn", "console"
	if cfg, err := c.ensureConfig(); err == nil {
		format = cfg.Logging.Format
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			level = cfg.Logging.Level
		}
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      format,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// withStore opens the job ledger for the duration of fn.
func (c *commandContext) withStore(fn func(*config.Config, *jobs.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Jobs.Enabled {
		return errors.New("job ledger disabled (jobs.enabled = false)")
	}
	store, err := jobs.Open(cfg)
	if err != nil {
		return fmt.Errorf("open job ledger: %w", err)
	}
	defer store.Close()
	return fn(cfg, store)
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
