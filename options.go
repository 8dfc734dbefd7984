package ggreplay

import (
	"log/slog"

	"github.com/gogpu/ggreplay/resource"
)

// Default session configuration.
const (
	// DefaultQuality is the JPEG quality used for published snapshots.
	// Snapshots are a diagnostic view; a lossy mid-range quality keeps
	// them small without visibly degrading most recordings.
	DefaultQuality = 60

	// DefaultPreloadConcurrency bounds the number of mutation events
	// whose arguments resolve in parallel during preload.
	DefaultPreloadConcurrency = 8
)

// Option configures a Session during creation.
// Use functional options to customize Session behavior.
//
// Example:
//
//	// Default configuration
//	s := ggreplay.NewSession(mirror)
//
//	// Custom snapshot quality and error observer
//	s := ggreplay.NewSession(mirror,
//	    ggreplay.WithQuality(80),
//	    ggreplay.WithErrorHandler(func(err error) { log.Println(err) }))
type Option func(*sessionOptions)

// sessionOptions holds optional configuration for Session creation.
type sessionOptions struct {
	quality            int
	loader             resource.Loader
	errorHandler       func(error)
	logger             *slog.Logger
	preloadConcurrency int
	maxSurfaceSize     int
}

// defaultSessionOptions returns the default session options.
func defaultSessionOptions() sessionOptions {
	return sessionOptions{
		quality:            DefaultQuality,
		loader:             nil, // Will be set to HTTPLoader if nil
		logger:             nil, // Will be set to the package logger if nil
		preloadConcurrency: DefaultPreloadConcurrency,
	}
}

// WithQuality sets the JPEG quality (1-100) for published snapshots.
// Values outside the range are clamped.
func WithQuality(quality int) Option {
	return func(o *sessionOptions) {
		if quality < 1 {
			quality = 1
		}
		if quality > 100 {
			quality = 100
		}
		o.quality = quality
	}
}

// WithLoader sets a custom image loader.
// Use this to inject caching proxies or to cut off network access.
func WithLoader(l resource.Loader) Option {
	return func(o *sessionOptions) {
		o.loader = l
	}
}

// WithErrorHandler installs an observer for swallowed replay errors:
// failed image loads, draw calls that could not apply, and snapshot
// encoding failures. The handler is observability only; a panic inside it
// is recovered and never affects playback.
func WithErrorHandler(h func(error)) Option {
	return func(o *sessionOptions) {
		o.errorHandler = h
	}
}

// WithLogger gives the session its own logger instead of the package-level
// one installed via SetLogger.
func WithLogger(l *slog.Logger) Option {
	return func(o *sessionOptions) {
		o.logger = l
	}
}

// WithPreloadConcurrency bounds parallel argument resolution during
// Preload. Values below 1 are ignored.
func WithPreloadConcurrency(n int) Option {
	return func(o *sessionOptions) {
		if n >= 1 {
			o.preloadConcurrency = n
		}
	}
}

// WithMaxSurfaceSize caps each side of newly created surfaces.
// Values below 1 are ignored.
func WithMaxSurfaceSize(maxDim int) Option {
	return func(o *sessionOptions) {
		if maxDim >= 1 {
			o.maxSurfaceSize = maxDim
		}
	}
}
