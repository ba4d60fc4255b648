// Package pantry holds project-wide build metadata.
package pantry

// Version is the pantry release. Overridden at build time with
// -ldflags "-X github.com/mesh-intelligence/pantry/pkg/pantry.Version=...".
var Version = "0.1.0"

// ModulePath is the Go module path of this project.
const ModulePath = "github.com/mesh-intelligence/pantry"
