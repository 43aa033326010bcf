package main

import (
	"log/slog"
	"strings"
	"sync"

	"qcflow/internal/config"
	"qcflow/internal/exitcontrol"
	"qcflow/internal/jobs"
	"qcflow/internal/logging"
	"qcflow/internal/nonconformance"
	"qcflow/internal/notifications"
	"qcflow/internal/parts"
	"qcflow/internal/store"
	"qcflow/internal/workflow"
)

// commandContext lazily builds the config, store, and services a command
// needs. The store holds a process lock, so it is opened once and closed when
// the command finishes.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	storeOnce sync.Once
	store     *store.Store
	storeErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureStore() (*store.Store, error) {
	c.storeOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.storeErr = err
			return
		}
		c.store, c.storeErr = store.Open(cfg)
	})
	return c.store, c.storeErr
}

func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) close() {
	if c.store != nil {
		_ = c.store.Close()
	}
}

func (c *commandContext) partRegistry() (*parts.Registry, error) {
	st, err := c.ensureStore()
	if err != nil {
		return nil, err
	}
	return parts.NewRegistry(st, c.ensureLogger()), nil
}

func (c *commandContext) jobService() (*jobs.Service, error) {
	registry, err := c.partRegistry()
	if err != nil {
		return nil, err
	}
	return jobs.NewService(c.store, registry, c.ensureLogger()), nil
}

func (c *commandContext) machine() (*workflow.Machine, error) {
	st, err := c.ensureStore()
	if err != nil {
		return nil, err
	}
	return workflow.NewMachine(st, c.ensureLogger()), nil
}

func (c *commandContext) notifier() (notifications.Service, error) {
	st, err := c.ensureStore()
	if err != nil {
		return nil, err
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return notifications.NewService(cfg, st, c.ensureLogger()), nil
}

func (c *commandContext) engine() (*nonconformance.Engine, error) {
	notifier, err := c.notifier()
	if err != nil {
		return nil, err
	}
	return nonconformance.NewEngine(c.store, notifier, c.ensureLogger()), nil
}

func (c *commandContext) exitController() (*exitcontrol.Controller, error) {
	st, err := c.ensureStore()
	if err != nil {
		return nil, err
	}
	return exitcontrol.NewController(st, c.ensureLogger()), nil
}
