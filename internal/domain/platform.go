package domain

// Platform is the deployment flavour of a correlation store.
type Platform string

// Platforms.
const (
	// PlatformMultiUser is a shared network store (Redis/Valkey).
	PlatformMultiUser Platform = "multi_user"
	// PlatformSingleUser is an embedded single-directory store.
	PlatformSingleUser Platform = "single_user"
)
