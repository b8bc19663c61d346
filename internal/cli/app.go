package cli

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/yuriy-kovalchuk/yk-netsync/internal/automation"
	"github.com/yuriy-kovalchuk/yk-netsync/internal/config"
	"github.com/yuriy-kovalchuk/yk-netsync/internal/controller"
	"github.com/yuriy-kovalchuk/yk-netsync/internal/inventory"
	"github.com/yuriy-kovalchuk/yk-netsync/internal/logging"
)

const defaultConfigHint = config.DefaultPath

type inventoryMode int

const (
	noInventory inventoryMode = iota
	readInventory
	writeInventory
)

// app holds what a single command invocation needs.
type app struct {
	cfg     *config.Config
	log     logr.Logger
	flush   func()
	offline bool

	lock   *flock.Flock
	db     *inventory.DB
	facade *automation.Facade
}

type runFunc func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error

// run wraps fn with config loading, logging and, depending on mode, the
// locked inventory.
func (r *root) run(mode inventoryMode, fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := r.newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		defer a.close(context.WithoutCancel(ctx))

		if mode != noInventory {
			if err := a.openInventory(mode == writeInventory); err != nil {
				return err
			}
		}
		return fn(ctx, a, cmd, args)
	}
}

func (r *root) newApp() (*app, error) {
	cfg, err := config.Load(r.v.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}
	if p := r.v.GetString("db"); p != "" {
		cfg.Inventory.Path = p
	}
	if l := r.v.GetString("log-level"); l != "" {
		cfg.Logging.Level = l
	}
	if r.v.GetBool("dev") {
		cfg.Logging.Development = true
	}

	log, flush, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Format:      cfg.Logging.Format,
	})
	if err != nil {
		return nil, err
	}
	log.V(1).Info("loaded config", "dns", cfg.DNS.Provider, "monitoring", cfg.Monitoring.Provider, "inventory", cfg.Inventory.Path)

	return &app{cfg: cfg, log: log, flush: flush, offline: r.v.GetBool("offline")}, nil
}

// openInventory takes the inventory file lock, exclusive for writers, and
// opens the database.
func (a *app) openInventory(exclusive bool) error {
	lock := flock.New(a.cfg.Inventory.Path + ".lock")
	lockFn := lock.RLock
	if exclusive {
		lockFn = lock.Lock
	}
	if err := lockFn(); err != nil {
		return fmt.Errorf("acquiring inventory lock: %w", err)
	}

	db, err := inventory.Open(a.cfg.Inventory.Path)
	if err != nil {
		lock.Unlock()
		return fmt.Errorf("unable to open inventory: %w", err)
	}
	a.lock, a.db = lock, db
	return nil
}

// automation returns the facade, filling missing credentials from the
// settings store when the inventory is open.
func (a *app) automation(ctx context.Context) (*automation.Facade, error) {
	if a.facade != nil {
		return a.facade, nil
	}
	if a.db != nil {
		if err := a.cfg.ResolveSettings(a.db.LookupSetting(ctx)); err != nil {
			return nil, err
		}
	}
	a.facade = automation.New(automation.Config{
		DNS:          a.cfg.DNS.ProviderConfig,
		Monitoring:   a.cfg.Monitoring.ProviderConfig,
		DefaultGroup: a.cfg.Monitoring.DefaultGroup,
	}, a.log.WithName("automation"))
	return a.facade, nil
}

// service returns the inventory service, reconciling through the facade
// unless running offline.
func (a *app) service(ctx context.Context) (*inventory.Service, error) {
	if a.offline {
		return inventory.NewService(a.db, nil, a.log), nil
	}
	f, err := a.automation(ctx)
	if err != nil {
		return nil, err
	}
	rec := &controller.Reconciler{
		Automation: f,
		Inventory:  a.db,
		Log:        a.log.WithName("reconciler"),
	}
	return inventory.NewService(a.db, rec, a.log), nil
}

func (a *app) close(ctx context.Context) {
	if a.facade != nil {
		if err := a.facade.Close(ctx); err != nil {
			a.log.Error(err, "failed to close monitoring session")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error(err, "failed to close inventory")
		}
	}
	if a.lock != nil {
		_ = a.lock.Unlock()
	}
	a.flush()
}
