package errors

type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInternal         Code = "INTERNAL_ERROR"
	CodeConfigValidation Code = "CONFIG_VALIDATION_ERROR"
	CodeConfigReadError  Code = "CONFIG_READ_ERROR"
	CodeConfigParseError Code = "CONFIG_PARSE_ERROR"
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeNotImplemented   Code = "NOT_IMPLEMENTED"
	CodeTimeout          Code = "TIMEOUT_ERROR"

	// Acquisition of the current tree from the device
	CodeTransport  Code = "TRANSPORT_ERROR"
	CodePermission Code = "PERMISSION_ERROR"

	// Baseline store
	CodeBaselineNotFound Code = "BASELINE_NOT_FOUND"
	CodeBaselineConflict Code = "BASELINE_CONFLICT"

	// Local disk failures while hashing, persisting or reporting
	CodeIO Code = "IO_ERROR"
)

func (c Code) String() string {
	return string(c)
}
