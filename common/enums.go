// Package common holds types shared by scanning, encoding and configuration
// so neither has to import the other.
package common

// Specification of requested output type.
// ENUM(text, protobuf)
type OutputFmt int

// Binary reports whether output is not meant for a terminal.
func (o OutputFmt) Binary() bool {
	return o == OutputFmtProtobuf
}

// What to do when region container cannot be scanned.
// ENUM(skip, abort)
type ErrorPolicy int
