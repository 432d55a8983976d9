package content

// Resource is the capability contract every loadable asset kind implements.
// The registry calls these methods and nothing else.
//
// Implementations must be pointer types: records are matched by identity.
type Resource interface {
	// Load reads and constructs the resource from path with kind-specific
	// params. Called on the owning goroutine.
	Load(path string, params any) error

	// Unload releases everything the instance holds. It must be safe on an
	// instance that only ran BeginHotReload, which may happen on the watcher
	// goroutine, and on an instance whose state was moved out by Apply.
	Unload()

	// CreateDefaultContent installs stand-in content after Load failed.
	// Returns false when no stand-in exists.
	CreateDefaultContent(path string) bool

	// BeginHotReload is reload phase 1: read, parse and validate. Runs off
	// the owning goroutine and must not touch non-thread-safe state.
	BeginHotReload(path string) error

	// ApplyHotReload is reload phase 2 on the owning goroutine. Returning
	// false rejects the reload and leaves the live instance untouched.
	ApplyHotReload() bool

	// Apply moves other's state into the receiver. Returns false only when
	// other is a different kind; the registry checks the kind before it
	// unloads the receiver. After a successful Apply, other owns nothing.
	Apply(other Resource) bool

	// CreateInstance returns an empty instance of the same kind carrying the
	// receiver's load params. Must be safe to call off the owning goroutine.
	CreateInstance() Resource
}

// Factory builds an empty resource for a registry miss.
type Factory func() Resource
