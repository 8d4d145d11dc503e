package transportinfo

// HeaderSize tracks byte counters for protocol headers flowing in one
// direction of a connection. A TransportInfo owns two of these, one for
// ingress headers and one for egress headers. The header codec that
// produces or consumes the bytes assigns the fields directly.
type HeaderSize struct {
	// Compressed is the number of bytes used to represent the header
	// after compression or before decompression. If header compression
	// is not in use the value stays zero.
	Compressed uint64

	// Uncompressed is the number of bytes used to represent the
	// serialized header in plain-text form.
	Uncompressed uint64

	// CompressedBlock is the number of bytes encoded as a compressed
	// header block. Compression algorithms emit a header block plus some
	// control information and Compressed accounts for both, so
	// Compressed - CompressedBlock gives the control overhead.
	CompressedBlock uint64
}
