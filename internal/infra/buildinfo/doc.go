// Package buildinfo exposes build information for snakeview.
//
// Version, Commit and BuildTime are injected via ldflags:
//
//	go build -ldflags "-X github.com/Herman-H/Snake-Robot-Display/internal/infra/buildinfo.Version=v1.0.0"
//
// Commit and BuildTime fall back to the VCS stamp embedded by the Go
// toolchain, so a plain go build still reports its revision.
package buildinfo
