package parley

// Version is the library version, overridable at build time via
// -ldflags "-X github.com/ketram/parley.Version=...".
var Version = "0.2.0"
