package errors

// ErrorCode represents a specific error code in the system.
type ErrorCode string

const (
	// GeneralInternalError represents a generic internal error.
	GeneralInternalError ErrorCode = "general_internal_error"
	// GeneralBadRequestError represents a generic bad request error.
	GeneralBadRequestError ErrorCode = "general_bad_request_error"
	// GeneralNotFoundError represents a generic not found error.
	GeneralNotFoundError ErrorCode = "general_not_found_error"

	// MalformedEventError represents a wire payload that could not be decoded
	// into a market event (unknown kind, missing field, non-numeric value).
	MalformedEventError ErrorCode = "malformed_event"
	// OutOfSequenceError represents an event whose sequence number is not
	// greater than the last applied sequence number.
	OutOfSequenceError ErrorCode = "out_of_sequence"
	// SequenceGapError represents a jump in the feed's sequence numbers
	// indicating one or more missed updates.
	SequenceGapError ErrorCode = "sequence_gap"
	// FeedDisconnectedError represents a lost feed transport connection.
	FeedDisconnectedError ErrorCode = "feed_disconnected"
	// FeedQueueOverflowError represents a full ingest queue that forced
	// dropping of not-yet-applied events.
	FeedQueueOverflowError ErrorCode = "feed_queue_overflow"
	// ResyncRequiredError represents a data-integrity condition that requires
	// discarding working state and re-seeding from a fresh snapshot.
	ResyncRequiredError ErrorCode = "resync_required"

	// UnsupportedTimeframeError represents a bar query for a timeframe the
	// engine was not configured with.
	UnsupportedTimeframeError ErrorCode = "unsupported_timeframe"
	// UnknownInstrumentError represents a query for an instrument the engine
	// does not track.
	UnknownInstrumentError ErrorCode = "unknown_instrument"
	// InvalidParameterError represents an analytics query called with an
	// out-of-range tunable.
	InvalidParameterError ErrorCode = "invalid_parameter"

	// HistoryFetchError represents a failure retrieving seed bars from the
	// historical data store.
	HistoryFetchError ErrorCode = "history_fetch_error"
	// HistoryEmptyError represents a seed request that returned no bars.
	HistoryEmptyError ErrorCode = "history_empty"

	// QuestDBConnectionError represents an error connecting to QuestDB.
	QuestDBConnectionError ErrorCode = "questdb_connection_error"
	// QuestDBQueryError represents an error querying QuestDB.
	QuestDBQueryError ErrorCode = "questdb_query_error"

	// RedisConnectionError represents an error connecting to Redis.
	RedisConnectionError ErrorCode = "redis_connection_error"
	// RedisConfigError represents an invalid Redis client configuration.
	RedisConfigError ErrorCode = "redis_config_error"
	// RedisPingError represents a failed Redis health check.
	RedisPingError ErrorCode = "redis_ping_error"
	// RedisXAddError represents an error when adding entries to a stream in Redis.
	RedisXAddError ErrorCode = "redis_xadd_error"

	// TransportDialError represents a failure dialing the feed transport.
	TransportDialError ErrorCode = "transport_dial_error"
	// TransportSubscribeError represents a failed subscription request.
	TransportSubscribeError ErrorCode = "transport_subscribe_error"
	// TransportReadError represents a failed read on the feed transport.
	TransportReadError ErrorCode = "transport_read_error"
)

// Severity represents the severity level of an error.
type Severity string

const (
	// SeverityCritical indicates a critical error that requires immediate attention.
	SeverityCritical Severity = "critical"
	// SeverityHigh indicates a high severity error that should be addressed promptly.
	SeverityHigh Severity = "high"
	// SeverityMedium indicates a medium severity error that should be addressed in due course.
	SeverityMedium Severity = "medium"
	// SeverityLow indicates a low severity error that can be addressed at a later time.
	SeverityLow Severity = "low"
)
