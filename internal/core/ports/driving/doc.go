// Package driving defines the driving ports (primary/inbound interfaces)
// for the hexagonal architecture.
//
// Driving ports are the interfaces through which the outside world
// (CLI, TUI, watch mode) invokes the conversion pipeline.
//
// # Import Rules
//
//   - Can Import: domain, ports/driven, standard library
//   - Cannot Import: services, adapters
package driving
