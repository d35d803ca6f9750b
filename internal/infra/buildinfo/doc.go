// Package buildinfo exposes the version of the running binary.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/tunnelmgr/internal/infra/buildinfo.Version=v1.0.0"
//
// When they are not, the commit and Go version are read from the module
// build information embedded by the Go toolchain.
package buildinfo
