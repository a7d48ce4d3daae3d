package pagevfs

import (
	"log/slog"

	"github.com/INLOpen/nexusvfs/blobstore"
	"github.com/INLOpen/nexusvfs/hooks"
	"github.com/INLOpen/nexusvfs/vfs"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Name is the name the page store registers under.
	Name = "pagevfs"

	DefaultSectorSize = 32
	DefaultPathPrefix = "/pagevfs/"
)

// FlushRequester is the durability side of the page store. Sync calls Request
// once local state is updated; *syncfs.Coordinator implements it.
type FlushRequester interface {
	Request() error
}

type Options struct {
	// Name overrides the registered name. Defaults to Name.
	Name string
	// Store holds page and size blobs. Defaults to a fresh MemStore.
	Store blobstore.Store
	// Coordinator receives one flush request per effective sync. Nil disables
	// flushing.
	Coordinator FlushRequester
	// Base is the wrapped filesystem. Nil wraps the registry default.
	Base *vfs.VFS

	SectorSize  int
	PathPrefix  string
	MaxPathname int

	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	Hooks          hooks.HookManager
}
