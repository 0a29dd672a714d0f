// Package graph implements driven.DeviceClient against the Microsoft Graph
// device-management API.
//
// Two calls are used: a paged listing of managed devices and the per-device
// syncDevice action. HTTP failures are returned as *APIError wrapped in a
// *domain.TransportError. A 429 response's Retry-After delays the next
// request; the failed request itself is never retried.
package graph
