package config

const (
	defaultAuthMode        = "auto"
	defaultRequestTimeout  = 30
	defaultDownloadDir     = "/tmp/szuru-downloads"
	defaultGalleryDLBinary = "gallery-dl"
	defaultSafety          = "safe"
	defaultServerBind      = "127.0.0.1:8080"
	defaultStateDir        = "~/.local/share/szurutools"
	defaultLogDir          = "~/.local/share/szurutools/logs"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

var defaultSkipPatterns = []string{"*.json", "*.part", "*.ytdl"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Szuru: Szuru{
			AuthMode:       defaultAuthMode,
			RequestTimeout: defaultRequestTimeout,
		},
		Import: Import{
			DownloadDir:     defaultDownloadDir,
			GalleryDLBinary: defaultGalleryDLBinary,
			SkipPatterns:    append([]string(nil), defaultSkipPatterns...),
			DefaultSafety:   defaultSafety,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
