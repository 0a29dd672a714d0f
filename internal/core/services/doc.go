// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The sync engine is split into three parts:
//
//   - DeviceDirectory: fetches the device snapshot and resolves names/platforms
//   - SyncInvoker: issues one sync trigger and classifies its failure
//   - BulkSyncService: drives a run over a target set and builds the report
//
// Services depend only on domain, the port interfaces and uuid for run IDs.
package services
