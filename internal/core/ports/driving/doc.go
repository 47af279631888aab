// Package driving defines the primary ports: the use cases the CLI
// invokes on the core services.
package driving
