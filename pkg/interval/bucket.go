package interval

import "time"

// CalculateBucketTime calculates the start time of the timeframe bucket
// containing timestamp. Buckets are aligned to the Unix epoch in UTC so the
// same timestamp always lands in the same bucket regardless of wall clock.
func (tf Timeframe) CalculateBucketTime(timestamp time.Time) time.Time {
	return timestamp.UTC().Truncate(tf.Duration)
}

// GetBucketRange returns the start and end time of the timeframe bucket.
func (tf Timeframe) GetBucketRange(timestamp time.Time) (start, end time.Time) {
	start = tf.CalculateBucketTime(timestamp)
	end = start.Add(tf.Duration)
	return start, end
}

// IsInBucket checks if two timestamps fall within the same bucket.
func (tf Timeframe) IsInBucket(timestamp1, timestamp2 time.Time) bool {
	return tf.CalculateBucketTime(timestamp1).Equal(tf.CalculateBucketTime(timestamp2))
}
