// Package capture records data read from a serial port into one or more
// sinks: a raw file, an SQLite database or an MQTT topic.
package capture

import (
	"errors"
	"time"
)

// Chunk is one read's worth of data.
type Chunk struct {
	Session string
	Port    string
	Time    time.Time
	Data    []byte
}

// Sink persists chunks.
type Sink interface {
	Write(c Chunk) error
	Close() error
}

type multiSink []Sink

// Multi fans every chunk out to all sinks. Write stops at the first error;
// Close closes every sink and joins their errors.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

func (m multiSink) Write(c Chunk) error {
	for _, s := range m {
		if err := s.Write(c); err != nil {
			return err
		}
	}
	return nil
}

func (m multiSink) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
