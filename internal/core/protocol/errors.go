package protocol

import "errors"

// Core protocol errors
var (
	// Message errors

	ErrUnknownKind           = errors.New("unknown message kind")
	ErrSerializationFailed   = errors.New("message serialization failed")
	ErrDeserializationFailed = errors.New("message deserialization failed")

	// Frame errors

	ErrFrameTooLarge = errors.New("frame exceeds size limit")
	ErrInvalidFrame  = errors.New("invalid frame")

	// Connection errors

	ErrConnectionClosed = errors.New("connection is closed")
)
