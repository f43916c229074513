package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	bolt "go.etcd.io/bbolt"

	"github.com/jmcleod/jobboard/client"
	"github.com/jmcleod/jobboard/internal/config"
	"github.com/jmcleod/jobboard/session"
	"github.com/jmcleod/jobboard/storage"
	bboltstorage "github.com/jmcleod/jobboard/storage/bbolt"
	"github.com/jmcleod/jobboard/storage/memory"
	pgstorage "github.com/jmcleod/jobboard/storage/postgres"
	"github.com/jmcleod/jobboard/storage/sealed"
)

// boltLockTimeout bounds how long a command waits for another jobboard
// process holding the session database.
const boltLockTimeout = 2 * time.Second

// app is the wired session, client and store for one command invocation.
type app struct {
	cfg     config.Config
	store   storage.Store
	session *session.Manager
	client  *client.Client
	closers []func() error
}

// openApp wires the store, session manager and client from the resolved
// configuration. reg may be nil.
func openApp(ctx context.Context, opts *rootOptions, reg prometheus.Registerer) (*app, error) {
	a := &app{cfg: opts.cfg}
	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	httpClient := &http.Client{Timeout: opts.cfg.RequestTimeout}
	sessOpts := []session.Option{
		session.WithHTTPClient(httpClient),
		session.WithRefreshTimeout(opts.cfg.RefreshTimeout),
		session.WithLogger(opts.logger),
	}
	if reg != nil {
		sessOpts = append(sessOpts, session.WithMetrics(session.NewMetrics(reg)))
	}
	a.session, err = session.New(store, opts.cfg.APIURL, sessOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client, err = client.New(opts.cfg.APIURL, a.session,
		client.WithHTTPClient(httpClient),
		client.WithLogger(opts.logger),
		client.WithUserAgent("jobboard-cli/"+Version),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) (storage.Store, error) {
	var inner storage.Store
	namespace := a.cfg.Namespace()
	switch a.cfg.Store {
	case config.StoreMemory:
		inner = memory.NewStore()
	case config.StoreBolt:
		s, err := bboltstorage.NewStoreFromFile(a.cfg.BoltPath(), namespace, &bolt.Options{Timeout: boltLockTimeout})
		if err != nil {
			return nil, fmt.Errorf("opening session database: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		inner = s
	case config.StorePostgres:
		s, err := pgstorage.NewStoreFromDSN(ctx, a.cfg.PostgresDSN, namespace)
		if err != nil {
			return nil, fmt.Errorf("opening postgres token store: %w", err)
		}
		a.closers = append(a.closers, func() error { s.Close(); return nil })
		inner = s
	default:
		return nil, fmt.Errorf("unknown store %q", a.cfg.Store)
	}

	if a.cfg.SealPassphrase == "" {
		return inner, nil
	}
	s, err := sealed.New(inner, a.cfg.SealPassphrase)
	if err != nil {
		return nil, fmt.Errorf("unlocking token store: %w", err)
	}
	a.closers = append(a.closers, func() error { s.Close(); return nil })
	return s, nil
}

// Close releases stores in reverse order of opening.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// withApp opens the app, runs fn and closes the app.
func withApp(ctx context.Context, opts *rootOptions, fn func(a *app) error) error {
	a, err := openApp(ctx, opts, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
