// Package file provides the TOML-backed configuration store.
// All pipeline tunables live in a single versioned config file in the
// skim config directory.
package file
