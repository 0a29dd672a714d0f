// Package domain defines the core business entities for intunesync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Device: A read-only projection of a managed device
//   - DeviceSnapshot: The device set fetched once per run
//   - Platform: An operating-system family used for bulk filters
//   - DeviceOutcome: The terminal result for one requested device
//   - ResultReport: The summary of one orchestration run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
