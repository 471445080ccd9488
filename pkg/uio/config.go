package uio

import (
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	defaultSysfsRoot         = "/sys"
	defaultDevRoot           = "/dev"
	defaultOpenRetryTimeout  = 5 * time.Second
	defaultOpenRetryInterval = 100 * time.Millisecond
	defaultIRQWorkers        = 4
	defaultIRQQueueHint      = 64
	defaultIRQPollInterval   = 100 * time.Millisecond
)

// Config is the uio provider configuration.
type Config struct {
	// SysfsRoot is where the uio class attributes are read from.
	SysfsRoot string
	// DevRoot holds the uioN character devices.
	DevRoot string
	// OpenRetryTimeout bounds how long OpenName waits for a device to show
	// up, e.g. after loading an overlay. Zero disables retrying.
	OpenRetryTimeout time.Duration
	// OpenRetryInterval is the first retry delay; later delays back off.
	OpenRetryInterval time.Duration
	// IRQWorkers is the size of the pool running IRQWatcher handlers.
	IRQWorkers int
	// IRQQueueHint is the number of undelivered interrupt events kept by an
	// IRQWatcher before the oldest are dropped.
	IRQQueueHint int64
	// IRQPollInterval bounds a single wait so that Stop is noticed.
	IRQPollInterval time.Duration
	// LogOutput receives provider logs. Nil means stdout.
	LogOutput io.Writer
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SysfsRoot:         defaultSysfsRoot,
		DevRoot:           defaultDevRoot,
		OpenRetryTimeout:  defaultOpenRetryTimeout,
		OpenRetryInterval: defaultOpenRetryInterval,
		IRQWorkers:        defaultIRQWorkers,
		IRQQueueHint:      defaultIRQQueueHint,
		IRQPollInterval:   defaultIRQPollInterval,
	}
}

// VerifyConfig is used to check whether the config is valid.
func VerifyConfig(config *Config) error {
	if config == nil {
		return errors.New("config is nil")
	}
	if config.SysfsRoot == "" || config.DevRoot == "" {
		return errors.New("SysfsRoot and DevRoot must not be empty")
	}
	if config.OpenRetryTimeout < 0 {
		return fmt.Errorf("OpenRetryTimeout must not be negative, got %v", config.OpenRetryTimeout)
	}
	if config.OpenRetryTimeout > 0 && config.OpenRetryInterval <= 0 {
		return errors.New("OpenRetryInterval must be greater than 0 when retrying")
	}
	if config.IRQWorkers <= 0 {
		return fmt.Errorf("IRQWorkers must be greater than 0, got %d", config.IRQWorkers)
	}
	if config.IRQQueueHint <= 0 {
		return fmt.Errorf("IRQQueueHint must be greater than 0, got %d", config.IRQQueueHint)
	}
	if config.IRQPollInterval <= 0 {
		return errors.New("IRQPollInterval must be greater than 0")
	}
	return nil
}
