// Package version exposes build-time version metadata.
package version

// DohrulesVersion is the semantic version string embedded at build time.
var DohrulesVersion = "0.0.0-src"

// Set version at compile time with
// go build -ldflags "-X dohrules/pkg/version.DohrulesVersion=1.0.0" -o dohrules

// For a release build with version and optimization flags:
// go build -ldflags "-s -w -X dohrules/pkg/version.DohrulesVersion=1.0.0" -o dohrules
