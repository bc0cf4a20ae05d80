package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *Config
	folder     string
	parentPage string
	verbose    bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithFolder sets the local folder (or single file) to mirror.
func WithFolder(path string) Option {
	return func(a *application) {
		a.folder = path
	}
}

// WithParentPage sets the remote page the mirrored root is created under.
func WithParentPage(id string) Option {
	return func(a *application) {
		a.parentPage = id
	}
}

// WithVerbose lowers the log level to debug.
func WithVerbose(verbose bool) Option {
	return func(a *application) {
		a.verbose = verbose
	}
}
