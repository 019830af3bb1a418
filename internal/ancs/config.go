package ancs

import (
	"fmt"
	"time"

	"github.com/cristianoliveira/ancs-intray/internal/config"
)

// Config holds the engine tunables.
type Config struct {
	// MaxQueued bounds the notification cache; 0 disables the bound.
	MaxQueued int
	// DropPreexisting drops notifications flagged as pre-existing on connection.
	DropPreexisting bool
	// MinFreeMemory is the free-memory floor in bytes under which new notifications are dropped.
	MinFreeMemory uint64
	// RequestTimeout bounds one attribute request.
	RequestTimeout time.Duration
	// BrowseDelay defers the first browse after the MTU exchange.
	BrowseDelay time.Duration
	// TitleMaxLen and MessageMaxLen bound the requested attribute lengths.
	TitleMaxLen   uint16
	MessageMaxLen uint16
	// Verbose traces every provider event and attribute value at debug level.
	Verbose bool
	// Strict panics on collaborator contract violations instead of logging them.
	Strict bool
	// DeviceName and PreferredMTU go into the advertisement.
	DeviceName   string
	PreferredMTU uint16
}

// DefaultConfig returns the stock engine configuration.
func DefaultConfig() Config {
	return Config{
		MaxQueued:       200,
		DropPreexisting: true,
		MinFreeMemory:   200,
		RequestTimeout:  10 * time.Second,
		BrowseDelay:     time.Second,
		TitleMaxLen:     25,
		MessageMaxLen:   75,
		DeviceName:      "ANCS Intray",
		PreferredMTU:    128,
	}
}

// ConfigFromGlobal builds a Config from the global configuration.
func ConfigFromGlobal() Config {
	cfg := DefaultConfig()
	cfg.MaxQueued = config.GetInt("notif_queue_max", cfg.MaxQueued)
	cfg.DropPreexisting = config.GetBool("drop_preexisting", cfg.DropPreexisting)
	cfg.MinFreeMemory = uint64(config.GetInt("min_free_memory", int(cfg.MinFreeMemory)))
	cfg.RequestTimeout = time.Duration(config.GetInt("request_timeout_ms", int(cfg.RequestTimeout/time.Millisecond))) * time.Millisecond
	cfg.BrowseDelay = time.Duration(config.GetInt("browse_delay_ms", int(cfg.BrowseDelay/time.Millisecond))) * time.Millisecond
	cfg.TitleMaxLen = uint16(config.GetInt("title_max_len", int(cfg.TitleMaxLen)))
	cfg.MessageMaxLen = uint16(config.GetInt("message_max_len", int(cfg.MessageMaxLen)))
	cfg.Verbose = config.GetBool("verbose_log", cfg.Verbose)
	cfg.Strict = config.GetBool("strict_protocol", cfg.Strict)
	cfg.DeviceName = config.Get("device_name", cfg.DeviceName)
	cfg.PreferredMTU = uint16(config.GetInt("preferred_mtu", int(cfg.PreferredMTU)))
	return cfg
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.MaxQueued < 0 {
		return fmt.Errorf("invalid queue bound %d: must not be negative", c.MaxQueued)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request timeout %s: must be positive", c.RequestTimeout)
	}
	if c.BrowseDelay < 0 {
		return fmt.Errorf("invalid browse delay %s: must not be negative", c.BrowseDelay)
	}
	return nil
}
