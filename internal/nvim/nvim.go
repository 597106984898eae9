package nvim

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/neovim/go-client/nvim"
)

// client is the part of *nvim.Nvim the reloader needs.
type client interface {
	Command(cmd string) error
	Close() error
}

// Reloader asks a running Neovim instance to re-read buffers whose files
// changed on disk.
type Reloader struct {
	addr string
	dial func(addr string) (client, error)
}

// Address returns the socket of the Neovim instance this process runs
// under, if any.
func Address() string {
	if addr := os.Getenv("NVIM"); addr != "" {
		return addr
	}
	return os.Getenv("NVIM_LISTEN_ADDRESS")
}

// New creates a Reloader for the instance at addr. An empty addr makes
// Reload a no-op.
func New(addr string) *Reloader {
	return &Reloader{
		addr: addr,
		dial: func(addr string) (client, error) {
			return nvim.Dial(addr)
		},
	}
}

// Enabled reports whether there is an instance to talk to.
func (r *Reloader) Enabled() bool {
	return r.addr != ""
}

// Reload runs :checktime so buffers for the changed paths pick up the new
// contents. It is best-effort: the files on disk are already final.
func (r *Reloader) Reload(paths []string) error {
	if !r.Enabled() || len(paths) == 0 {
		return nil
	}

	v, err := r.dial(r.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to nvim at %s: %w", r.addr, err)
	}
	defer v.Close()

	if err := v.Command("checktime"); err != nil {
		return fmt.Errorf("nvim checktime failed: %w", err)
	}
	slog.Debug("reloaded nvim buffers", "addr", r.addr, "paths", len(paths))
	return nil
}
