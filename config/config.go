package config

import (
	"log"
	"time"
)

// Limits fixed at build time. A field is accepted as long as its total length stays
// strictly below the corresponding size, therefore e.g. the longest possible URL is
// MaxURLSize-1 bytes long.
const (
	MaxURLSize         = 256
	MaxHeaderNameSize  = 128
	MaxHeaderValueSize = 256
	// MaxHeaders is the maximal number of header fields a single request may carry.
	MaxHeaders = 64
	// MaxPollRetries is the number of consecutive poll ticks without any transport
	// progress after which the connection is considered stalled and is dropped.
	MaxPollRetries = 4
)

// Logger is satisfied by *log.Logger and testing.T-based adapters.
type Logger interface {
	Printf(format string, v ...any)
}

type (
	NET struct {
		// ReadBufferSize is the size of a buffer the data is read from the socket into. The
		// same buffer is handed over to the recv callback, so it also defines the maximal
		// length of a body view.
		ReadBufferSize int
		// SendBufferSize limits how many bytes may be accepted by the transport, but not yet
		// transmitted. This is what the send window reports.
		SendBufferSize int
		// SendQueueLen limits the number of separate writes pending in the send buffer.
		SendQueueLen int
		// PollInterval is the period between two poll ticks. Stalled and idle connections
		// are dropped after MaxPollRetries ticks.
		PollInterval time.Duration
		// WriteTimeout limits a single write to the socket.
		WriteTimeout time.Duration
	}

	Static struct {
		// ChunkSize is how many bytes the static files handler transmits per invocation.
		ChunkSize int
		// CacheControl is the value of Cache-Control header of static files responses.
		CacheControl string
	}

	Log struct {
		// Logger receives all the log lines. Defaults to log.Default().
		Logger Logger
		// Debug enables debug lines, e.g. connection lifecycle events.
		Debug bool `test:"nullable"`
	}
)

// Config holds runtime settings. You must always modify defaults (returned via Default())
// instead of initializing the config manually.
type Config struct {
	NET    NET
	Static Static
	Log    Log
}

// Default returns the default config, tuned for small memory footprint.
func Default() *Config {
	return &Config{
		NET: NET{
			ReadBufferSize: 2 * 1024,
			// mirrors TCP_SND_BUF of a typical embedded stack
			SendBufferSize: 5744,
			SendQueueLen:   16,
			PollInterval:   2 * time.Second,
			WriteTimeout:   30 * time.Second,
		},
		Static: Static{
			ChunkSize:    1024,
			CacheControl: "max-age=3600, must-revalidate",
		},
		Log: Log{
			Logger: log.Default(),
		},
	}
}
