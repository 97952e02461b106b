//go:build debug

package buildmode

const Debug = true

const DefaultLogLevel = "debug"
