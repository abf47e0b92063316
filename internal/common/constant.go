package common

// ServiceName is used as the default verifier identity and as the metrics
// namespace.
const ServiceName = "packkeeper"

// BytesPerMiB converts byte counts into the megabyte figures reported by the APIs.
const BytesPerMiB = 1024 * 1024
