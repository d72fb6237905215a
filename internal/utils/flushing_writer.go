package utils

import (
	"io"
	"sync"
)

type flusher interface {
	Flush() error
}

// FlushingWriter serializes writes to a destination, flushes buffered destinations after each write
// and counts the bytes that reached the destination.
type FlushingWriter struct {
	mutex        sync.Mutex
	destination  io.Writer
	bytesWritten int64
}

// NewFlushingWriter wraps destination. A nil destination yields a writer that discards input.
func NewFlushingWriter(destination io.Writer) *FlushingWriter {
	if existing, wrapped := destination.(*FlushingWriter); wrapped {
		return existing
	}
	if destination == nil {
		destination = io.Discard
	}
	return &FlushingWriter{destination: destination}
}

// Write forwards data and flushes the destination when it buffers output.
func (writer *FlushingWriter) Write(data []byte) (int, error) {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()

	written, writeError := writer.destination.Write(data)
	writer.bytesWritten += int64(written)
	if writeError != nil {
		return written, writeError
	}
	if bufferedDestination, buffers := writer.destination.(flusher); buffers {
		return written, bufferedDestination.Flush()
	}
	return written, nil
}

// BytesWritten reports how many bytes the destination accepted so far.
func (writer *FlushingWriter) BytesWritten() int64 {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()
	return writer.bytesWritten
}
