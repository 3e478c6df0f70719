// Package driving provides interfaces for the application's entry points
// (primary/inbound ports) implemented by the core services.
package driving
