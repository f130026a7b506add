package config

import (
	"fmt"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"log/slog"
	"sync"
	"sync/atomic"
	"wallet/internal/models"
)

// Provider holds the active configuration snapshot. Snapshots are never
// mutated after publication; every change publishes a new one.
type Provider struct {
	v       *viper.Viper
	logger  *slog.Logger
	current atomic.Pointer[Config]

	mu        sync.Mutex
	nextID    int
	subs      map[int]func(*Config)
	delegates []models.Node
	// overridden is set once SetDelegates has been called, even with no nodes.
	overridden bool
}

func NewProvider(configPath string, logger *slog.Logger) (*Provider, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}

	cfg, err := read(v)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		v:      v,
		logger: logger,
		subs:   make(map[int]func(*Config)),
	}
	p.current.Store(cfg)
	return p, nil
}

// NewStaticProvider wraps a fixed configuration, e.g. for a one-shot command.
func NewStaticProvider(cfg *Config, logger *slog.Logger) *Provider {
	p := &Provider{
		logger: logger,
		subs:   make(map[int]func(*Config)),
	}
	p.current.Store(cfg.clone())
	return p
}

// SetLogger replaces the logger used for reload reports. Call it before Watch.
func (p *Provider) SetLogger(logger *slog.Logger) {
	p.logger = logger
}

// Current returns the latest snapshot. Callers must not modify it.
func (p *Provider) Current() *Config {
	return p.current.Load()
}

// Subscribe registers fn for every published snapshot and returns the
// function releasing the subscription.
func (p *Provider) Subscribe(fn func(*Config)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// Watch reloads the configuration whenever the file changes.
func (p *Provider) Watch() {
	if p.v == nil {
		return
	}
	p.v.OnConfigChange(func(e fsnotify.Event) {
		p.logger.Info("config file changed", "file", e.Name, "op", e.Op.String())
		if err := p.Reload(); err != nil {
			p.logger.Error("config reload failed, keeping previous snapshot", "error", err)
		}
	})
	p.v.WatchConfig()
}

// Reload re-reads the configuration and publishes it. Delegates set through
// SetDelegates take precedence over the file.
func (p *Provider) Reload() error {
	if p.v == nil {
		return nil
	}
	if err := p.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := read(p.v)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.overridden {
		cfg.Delegates = append([]models.Node(nil), p.delegates...)
	}
	p.publishLocked(cfg)
	return nil
}

// SetDelegates replaces the node set of the active snapshot.
func (p *Provider) SetDelegates(nodes []models.Node) error {
	if err := validateDelegates(nodes); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.delegates = append([]models.Node(nil), nodes...)
	p.overridden = true

	cfg := p.current.Load().clone()
	cfg.Delegates = append([]models.Node(nil), nodes...)
	p.publishLocked(cfg)
	return nil
}

func (p *Provider) publishLocked(cfg *Config) {
	p.current.Store(cfg)
	for _, fn := range p.subs {
		fn(cfg)
	}
}
