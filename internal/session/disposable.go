package session

import (
	"fmt"

	"github.com/user/browserkit/internal/driver"
	"github.com/user/browserkit/internal/logging"
	"github.com/user/browserkit/internal/remote"
)

// Disposable launches a private browser that lives only as long as this
// program. Nothing is persisted and no earlier browser is reused.
type Disposable struct {
	cfg      Config
	deps     Deps
	resolved remote.Resolved

	conn remote.Conn
	drv  *driver.Driver
}

func NewDisposable(cfg Config, deps Deps) (*Disposable, error) {
	if cfg.Port == 0 {
		cfg.Port = DefaultDisposablePort
	}

	resolved, err := deps.Resolver.Resolve(cfg.DriverPath)
	if err != nil {
		return nil, fmt.Errorf("resolve %s driver: %w", cfg.Family, err)
	}
	return &Disposable{cfg: cfg, deps: deps, resolved: resolved}, nil
}

// Begin launches the browser and connects to it.
func (d *Disposable) Begin() (bool, error) {
	executor, err := d.deps.Launcher.Launch(remote.LaunchSpec{
		Bin:        d.resolved.Path,
		Port:       d.cfg.Port,
		Options:    d.cfg.Options,
		NewConsole: d.cfg.NewConsole,
	})
	if err != nil {
		return false, fmt.Errorf("launch %s: %w", d.cfg.Family, err)
	}

	conn, err := d.deps.Endpoint.Connect(remote.ConnectRequest{
		Executor: executor,
		Options:  d.cfg.Options,
	})
	if err != nil {
		return false, fmt.Errorf("connect %s: %w", d.cfg.Family, err)
	}

	conn.SetImplicitWait(d.cfg.ImplicitWait)
	d.conn = conn
	d.drv = driver.New(conn)

	logging.Logger.Infof("Started disposable %s, session %s", d.cfg.Family, conn.SessionID())
	return true, nil
}

func (d *Disposable) Driver() *driver.Driver {
	return d.drv
}

func (d *Disposable) Conn() remote.Conn {
	return d.conn
}

// Quit closes the browser.
func (d *Disposable) Quit() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Quit()
}
