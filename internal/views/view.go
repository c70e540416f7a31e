// Package views binds each console page to a poller task and renders its
// snapshots into frames for live connections.
package views

import (
	"context"
	"errors"
	"time"

	"github.com/cimex/cimex-console/internal/apiclient"
	"github.com/cimex/cimex-console/internal/domain"
	"github.com/cimex/cimex-console/internal/poller"
)

// Backend is the subset of the panel API the views read and mutate.
// *apiclient.Client implements it.
type Backend interface {
	Status(ctx context.Context) (*domain.Status, error)
	Logs(ctx context.Context, limit int) ([]domain.LogEntry, error)
	Nodes(ctx context.Context) ([]domain.Node, error)
	CreateNode(ctx context.Context, node domain.NodeCreate) (*domain.Node, error)
	DeleteNode(ctx context.Context, id string) error
	Settings(ctx context.Context) (*domain.Settings, error)
	UpdateSettings(ctx context.Context, settings domain.Settings) error
	CoreHealth(ctx context.Context) ([]domain.CoreHealth, error)
	ResetConfigs(ctx context.Context) ([]domain.ResetConfig, error)
	ResetCore(ctx context.Context, core string) error
	UpdateResetConfig(ctx context.Context, core string, update domain.ResetConfigUpdate) error
	CA(ctx context.Context, kind apiclient.CAKind, download bool) ([]byte, error)
}

// Frame is one rendered view state pushed to a live connection.
type Frame struct {
	View         string    `json:"view"`
	Seq          uint64    `json:"seq"`
	Loading      bool      `json:"loading"`
	Paused       bool      `json:"paused"`
	Error        string    `json:"error,omitempty"`
	Unauthorized bool      `json:"unauthorized,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
	Data         any       `json:"data,omitempty"`
}

// View is a mounted page. Mount starts polling, Unmount stops it.
type View interface {
	Name() string
	Mount(ctx context.Context)
	Unmount()
	Pause()
	Resume()
	Refresh()
	Render() Frame
}

// Options carries per-instance wiring shared by every view.
type Options struct {
	OnUpdate func(Frame)
	Ticker   poller.TickerFunc
	Observer poller.Observer
}

// base adapts a poller.Task to the View interface.
type base[T any] struct {
	task   *poller.Task[T]
	render func(T) any
}

func newBase[T any](name string, interval time.Duration, fetch poller.FetchFunc[T], render func(T) any, opts Options) *base[T] {
	b := &base[T]{render: render}
	taskOpts := []poller.Option[T]{}
	if opts.Ticker != nil {
		taskOpts = append(taskOpts, poller.WithTicker[T](opts.Ticker))
	}
	if opts.Observer != nil {
		taskOpts = append(taskOpts, poller.WithObserver[T](opts.Observer))
	}
	if opts.OnUpdate != nil {
		onUpdate := opts.OnUpdate
		taskOpts = append(taskOpts, poller.WithUpdateHandler(func(s poller.Snapshot[T]) {
			onUpdate(b.frame(s))
		}))
	}
	b.task = poller.New(name, interval, fetch, taskOpts...)
	return b
}

func (b *base[T]) Name() string              { return b.task.Name() }
func (b *base[T]) Mount(ctx context.Context) { b.task.Start(ctx) }
func (b *base[T]) Unmount()                  { b.task.Stop() }
func (b *base[T]) Pause()                    { b.task.Pause() }
func (b *base[T]) Resume()                   { b.task.Resume() }
func (b *base[T]) Refresh()                  { b.task.Refresh() }
func (b *base[T]) Render() Frame             { return b.frame(b.task.Snapshot()) }

// wait blocks until in-flight fetches complete. Used by tests.
func (b *base[T]) wait() { b.task.Wait() }

func (b *base[T]) frame(s poller.Snapshot[T]) Frame {
	f := Frame{
		View:      b.task.Name(),
		Seq:       s.Seq,
		Loading:   s.Loading,
		Paused:    b.task.Paused(),
		UpdatedAt: s.UpdatedAt,
	}
	if s.Err != nil {
		f.Error = s.Err.Error()
		f.Unauthorized = errors.Is(s.Err, apiclient.ErrUnauthorized)
	}
	if !s.UpdatedAt.IsZero() || !s.Loading {
		f.Data = b.render(s.Value)
	}
	return f
}
