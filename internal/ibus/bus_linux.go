//go:build linux

package ibus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

// factory hands the single engine to the IBus daemon.
type factory struct {
	conn   *dbus.Conn
	engine *Engine
	name   string

	mu sync.Mutex
	id uint32
}

func (f *factory) CreateEngine(name string) (dbus.ObjectPath, *dbus.Error) {
	if name != f.name {
		return "", dbus.NewError("org.freedesktop.IBus.NoEngine",
			[]interface{}{"unknown engine: " + name})
	}

	f.mu.Lock()
	f.id++
	path := dbus.ObjectPath(fmt.Sprintf("/org/freedesktop/IBus/Engine/%d", f.id))
	f.mu.Unlock()

	if err := f.conn.Export(f.engine, path, EngineInterface); err != nil {
		return "", dbus.MakeFailedError(err)
	}
	f.engine.Bind(f.conn, path)
	f.engine.logger.Info("engine created", "name", name, "path", string(path))
	return path, nil
}

func (f *factory) Destroy() *dbus.Error { return nil }

// Serve connects to the bus at address, or the session bus when address is
// empty, registers the factory for engine name and blocks until ctx is done.
func Serve(ctx context.Context, address, name string, e *Engine) error {
	var (
		conn *dbus.Conn
		err  error
	)
	if address == "" {
		conn, err = dbus.ConnectSessionBus()
	} else {
		conn, err = dbus.Connect(address)
	}
	if err != nil {
		return fmt.Errorf("connect bus: %w", err)
	}
	defer conn.Close()

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("ibus: bus name already taken")
	}

	f := &factory{conn: conn, engine: e, name: name}
	if err := conn.Export(f, FactoryPath, FactoryInterface); err != nil {
		return fmt.Errorf("export factory: %w", err)
	}

	e.logger.Info("ibus engine started", "name", name)
	<-ctx.Done()
	e.logger.Info("ibus engine stopping")
	return nil
}
