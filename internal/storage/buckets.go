package storage

// Buckets names the three buckets the service uses.
type Buckets struct {
	// Inputs holds the caller-supplied portrait and product images.
	Inputs string
	// Scenes holds the client-composited scene images.
	Scenes string
	// Videos holds the materialized result videos.
	Videos string
}
