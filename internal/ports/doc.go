// Package ports defines interfaces between layers in the hexagonal architecture.
// Persistence ports are implemented by outbound adapters and called by the
// action framework; health ports are implemented by platform components and
// read by the readiness endpoint. Handlers declare the service interfaces
// they consume themselves.
package ports
