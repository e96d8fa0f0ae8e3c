// Package metrics provides constants used across metric definitions.
package metrics

// Operation labels for catalog operations.
const (
	OpQuery           = "query"
	OpExecute         = "execute"
	OpTransaction     = "transaction"
	OpSchemaInit      = "schema_init"
	OpRegisterFlight  = "register_flight"
	OpRegisterCamera  = "register_camera"
	OpUpsertImage     = "upsert_image"
	OpApplyPositions  = "apply_positions"
	OpUpdateImagePath = "update_image_paths"
	OpLookup          = "lookup"
)

// Status labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusCreated = "created"
	StatusReused  = "reused"
)

// Cache result labels.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Histogram bucket layout.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms.
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms.
	BucketStart10ms = 0.01
	// BucketStart100ms is the starting bucket for 100ms histograms (100ms to ~100s range).
	BucketStart100ms = 0.1

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
	// BucketCount15 defines 15 exponential buckets.
	BucketCount15 = 15
)
