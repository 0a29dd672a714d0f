// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - SessionProvider: Acquires an authenticated API session per run
//   - Session: The scoped handle a run uses and releases
//   - DeviceClient: Lists managed devices and triggers device sync
//   - Pacer: Spaces consecutive sync calls
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ReportStore: Audit persistence of run reports. Without it, reports
//     are only handed back to the caller.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
