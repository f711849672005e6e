package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openzug/openzug/internal/api"
	"github.com/openzug/openzug/internal/logging"
)

// Default cadences. Update status polling is adaptive: while the
// device reports an update in progress the cadence tightens so
// progress is visible, then relaxes again once idle.
const (
	DefaultStateInterval  = 30 * time.Second
	DefaultConfigInterval = 5 * time.Minute
	UpdateIdleInterval    = 6 * time.Hour
	UpdateActiveInterval  = 5 * time.Second
)

// Refresher is a schedulable unit of polling work. Implementations
// must distinguish authentication failures (api.IsAuthError) from
// ordinary I/O failure.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshFunc adapts a function to the Refresher interface.
type RefreshFunc func(ctx context.Context) error

// Refresh implements Refresher.
func (f RefreshFunc) Refresh(ctx context.Context) error {
	return f(ctx)
}

// Poller drives the three aggregate snapshots of one appliance on
// independent cadences and holds the latest successful result of each.
// Snapshots are replaced wholesale on every successful refresh; there
// is no merging across polls.
type Poller struct {
	client *api.Client

	StateInterval  time.Duration
	ConfigInterval time.Duration

	// OnAuthFailure, when set, is called once with the authentication
	// error that stopped the poller, before Run returns it. Hosts use
	// it to trigger re-authentication.
	OnAuthFailure func(error)

	mu               sync.RWMutex
	meta             api.AggMeta
	state            api.AggState
	updates          api.AggUpdateStatus
	config           api.AggConfig
	firstRefreshDone bool
	updateInterval   time.Duration
}

// New creates a poller for client with default cadences.
func New(client *api.Client) *Poller {
	return &Poller{
		client:         client,
		StateInterval:  DefaultStateInterval,
		ConfigInterval: DefaultConfigInterval,
		updateInterval: UpdateIdleInterval,
	}
}

// Meta returns the resolved device identity. Valid after the first
// successful RefreshMeta.
func (p *Poller) Meta() api.AggMeta {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.meta
}

// State returns the latest state snapshot.
func (p *Poller) State() api.AggState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// UpdateStatus returns the latest update status snapshot.
func (p *Poller) UpdateStatus() api.AggUpdateStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updates
}

// Config returns the latest configuration tree snapshot.
func (p *Poller) Config() api.AggConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config
}

// RefreshMeta resolves the device identity. It must succeed once
// before the periodic loops start; identity decides whether update
// status polling is attempted at all.
func (p *Poller) RefreshMeta(ctx context.Context) error {
	meta, err := p.client.AggregateMeta(ctx, false)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.meta = meta
	p.mu.Unlock()
	return nil
}

// RefreshState refreshes the state snapshot. Until the first refresh
// has succeeded, endpoint failures are not degraded to defaults so
// connection problems surface during setup.
func (p *Poller) RefreshState(ctx context.Context) error {
	p.mu.RLock()
	defaultOnError := p.firstRefreshDone
	p.mu.RUnlock()

	state, err := p.client.AggregateState(ctx, defaultOnError)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.state = state
	p.firstRefreshDone = true
	p.mu.Unlock()
	return nil
}

// RefreshUpdateStatus refreshes the update snapshot and adapts the
// update polling cadence to the reported activity. Update information
// is not essential, so failed endpoints degrade to defaults.
func (p *Poller) RefreshUpdateStatus(ctx context.Context) error {
	p.mu.RLock()
	supports := p.meta.SupportsUpdateStatus()
	p.mu.RUnlock()

	updates, err := p.client.AggregateUpdateStatus(ctx, supports, true)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.updates = updates
	if updates.Update.Idle() {
		p.updateInterval = UpdateIdleInterval
	} else {
		p.updateInterval = UpdateActiveInterval
	}
	p.mu.Unlock()
	return nil
}

// RefreshConfig refreshes the configuration tree snapshot.
func (p *Poller) RefreshConfig(ctx context.Context) error {
	config, err := p.client.AggregateConfig(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.config = config
	p.mu.Unlock()
	return nil
}

// Run performs the initial refresh sequence (meta first, then one
// round of every snapshot) and then polls until ctx is cancelled.
// Ordinary refresh failures are logged and retried on the next tick;
// an authentication failure stops the poller and is returned so the
// host can trigger re-authentication.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.RefreshMeta(ctx); err != nil {
		return err
	}
	if err := p.RefreshState(ctx); err != nil {
		return err
	}
	if err := p.RefreshUpdateStatus(ctx); err != nil {
		return err
	}
	if err := p.RefreshConfig(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	authErr := make(chan error, 3)
	var wg sync.WaitGroup
	loops := []struct {
		name     string
		interval func() time.Duration
		refresh  Refresher
	}{
		{"state", func() time.Duration { return p.StateInterval }, RefreshFunc(p.RefreshState)},
		{"update", p.currentUpdateInterval, RefreshFunc(p.RefreshUpdateStatus)},
		{"config", func() time.Duration { return p.ConfigInterval }, RefreshFunc(p.RefreshConfig)},
	}
	for _, loop := range loops {
		loop := loop
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.runLoop(ctx, loop.name, loop.interval, loop.refresh, authErr, cancel)
		}()
	}
	wg.Wait()

	select {
	case err := <-authErr:
		if p.OnAuthFailure != nil {
			p.OnAuthFailure(err)
		}
		return err
	default:
		return nil
	}
}

func (p *Poller) currentUpdateInterval() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updateInterval
}

func (p *Poller) runLoop(ctx context.Context, name string, interval func() time.Duration, refresher Refresher, authErr chan<- error, cancel context.CancelFunc) {
	for {
		timer := time.NewTimer(interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		err := refresher.Refresh(ctx)
		switch {
		case err == nil:
		case api.IsAuthError(err):
			logging.Error("authentication failed, stopping poller",
				zap.String("loop", name), zap.Error(err))
			select {
			case authErr <- err:
			default:
			}
			cancel()
			return
		case ctx.Err() != nil:
			return
		default:
			logging.Warn("refresh failed",
				zap.String("loop", name), zap.Error(err))
		}
	}
}
