package transportinfo

// ProtocolInfo is an open extension point for protocol-specific
// telemetry. A protocol layer (for example a stream-multiplexing
// transport) may attach any concrete type to TransportInfo.Protocol;
// this package stores the value without ever inspecting it, so the
// generic record does not depend on concrete protocol packages.
// Consumers that know the concrete type recover it with an ordinary
// type assertion.
type ProtocolInfo any
