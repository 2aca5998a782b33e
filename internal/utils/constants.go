package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

const (
	// DefaultRequestTimeout bounds one synchronous analysis request
	DefaultRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long graceful shutdown waits for in-flight work
	ShutdownTimeout = 10 * time.Second

	// QueueConnectTimeout bounds the initial broker ping
	QueueConnectTimeout = 5 * time.Second
)

// =============================================================================
// Retry and Backoff Constants
// =============================================================================

const (
	// DefaultMaxRetries is the default number of retry attempts
	DefaultMaxRetries = 3

	// DefaultRetryBackoff is the default backoff duration between retries
	DefaultRetryBackoff = 100 * time.Millisecond
)

// =============================================================================
// Buffer and Batch Size Constants
// =============================================================================

const (
	// DefaultBufferSize is the in-memory queue capacity per subject
	DefaultBufferSize = 10000

	// DefaultReadBatch is how many messages a stream consumer reads per poll
	DefaultReadBatch = 100

	// MaxAckPending caps unacknowledged deliveries per consumer
	MaxAckPending = 100
)

// =============================================================================
// Queue Type Constants
// =============================================================================

// QueueType represents the type of message queue
type QueueType string

const (
	// QueueTypeNATS represents NATS JetStream queue
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMemory represents in-memory queue (default)
	QueueTypeMemory QueueType = "memory"
)
