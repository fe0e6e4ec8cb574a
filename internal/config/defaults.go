package config

const (
	defaultLogDir       = "~/.local/share/stillmotion/logs"
	defaultCacheDir     = "~/.cache/stillmotion"
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
	defaultCodec        = "mjpeg"
	defaultContainer    = "avi"
	defaultFrameRate    = 30.0
	defaultQuality      = 85
	defaultSortKey      = "name"
	defaultUnsafeHeight = 4096
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			CacheDir: defaultCacheDir,
		},
		Assembly: Assembly{
			Codec:     defaultCodec,
			Container: defaultContainer,
			FrameRate: defaultFrameRate,
			Quality:   defaultQuality,
			SortKey:   defaultSortKey,
		},
		Output: Output{
			OverwriteExisting: false,
		},
		Cache: TimestampCache{
			Enabled: true,
		},
		Encoder: Encoder{
			UnsafeHeight: defaultUnsafeHeight,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
