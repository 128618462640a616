package domain

const (
	// Environment facts attached to every baseline. Missing values are
	// recorded as UnknownValue rather than omitted.
	KeyDevice        = "device"
	KeyOSVersion     = "os_version"
	KeyTargetVersion = "target_version"

	UnknownValue = "unknown"
)

// RequiredEnvironmentKeys are always present in Metadata.Environment.
var RequiredEnvironmentKeys = []string{KeyDevice, KeyOSVersion, KeyTargetVersion}
