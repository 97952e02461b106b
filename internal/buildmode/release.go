//go:build !debug

package buildmode

// Debug reports whether the binary was built with -tags debug.
const Debug = false

// DefaultLogLevel is the level used when no log level is configured.
const DefaultLogLevel = "info"
