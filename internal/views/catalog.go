package views

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cimex/cimex-console/internal/poller"
)

// ErrUnknownView is returned for a name the catalog does not know.
var ErrUnknownView = errors.New("unknown view")

// Intervals holds the poll interval of each polling view.
type Intervals struct {
	Dashboard  time.Duration
	Logs       time.Duration
	CoreHealth time.Duration
}

// DefaultIntervals are the console poll intervals.
var DefaultIntervals = Intervals{
	Dashboard:  5 * time.Second,
	Logs:       2 * time.Second,
	CoreHealth: 10 * time.Second,
}

// Catalog builds views by name.
type Catalog struct {
	backend   Backend
	intervals Intervals
	logLimit  int
	ticker    poller.TickerFunc
	observer  poller.Observer
	ctors     map[string]func(Options) View
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithIntervals overrides the poll intervals.
func WithIntervals(i Intervals) CatalogOption {
	return func(c *Catalog) { c.intervals = i }
}

// WithLogLimit sets the number of log entries requested per poll.
func WithLogLimit(n int) CatalogOption {
	return func(c *Catalog) { c.logLimit = n }
}

// WithTicker replaces the wall-clock ticker of every view.
func WithTicker(fn poller.TickerFunc) CatalogOption {
	return func(c *Catalog) { c.ticker = fn }
}

// WithFetchObserver reports every view fetch.
func WithFetchObserver(o poller.Observer) CatalogOption {
	return func(c *Catalog) { c.observer = o }
}

// NewCatalog returns a catalog of every console view.
func NewCatalog(backend Backend, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		backend:   backend,
		intervals: DefaultIntervals,
		logLimit:  DefaultLogLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctors = map[string]func(Options) View{
		DashboardName: func(o Options) View {
			return NewDashboard(c.backend, c.intervals.Dashboard, o)
		},
		LogsName: func(o Options) View {
			return NewLogs(c.backend, c.intervals.Logs, c.logLimit, o)
		},
		CoreHealthName: func(o Options) View {
			return NewCoreHealth(c.backend, c.intervals.CoreHealth, o)
		},
		NodesName: func(o Options) View {
			return NewNodes(c.backend, o)
		},
		ServersName: func(o Options) View {
			return NewServers(c.backend, o)
		},
		SettingsName: func(o Options) View {
			return NewSettings(c.backend, o)
		},
	}
	return c
}

// Names returns the known view names in order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.ctors))
	for name := range c.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds an unmounted view. onUpdate receives every applied snapshot.
func (c *Catalog) New(name string, onUpdate func(Frame)) (View, error) {
	ctor, ok := c.ctors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, name)
	}
	return ctor(Options{OnUpdate: onUpdate, Ticker: c.ticker, Observer: c.observer}), nil
}
