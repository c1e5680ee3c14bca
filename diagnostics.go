package props

// DiagnosticLevel grades a Diagnostic.
type DiagnosticLevel string

const (
	LevelWarning DiagnosticLevel = "warning"
	LevelError   DiagnosticLevel = "error"
)

// Diagnostic codes emitted by the kernel.
const (
	CodeKindConflict      = "merge.kind_conflict"
	CodeEmptyStricter     = "merge.empty_stricter"
	CodeEmptyLooser       = "merge.empty_looser"
	CodeEnumNarrowed      = "merge.enum_narrowed"
	CodeEnumWidened       = "merge.enum_widened"
	CodeRangeNarrowed     = "merge.range_narrowed"
	CodeRangeWidened      = "merge.range_widened"
	CodeValidatorChanged  = "merge.validator_changed"
	CodeDefaultOverridden = "merge.default_overridden"
	CodeRawWatchFired     = "watch.raw_escape_hatch"
)

// Diagnostic is a single merge or dispatch note. Warnings never block.
type Diagnostic struct {
	Level   DiagnosticLevel `json:"level"`
	Code    string          `json:"code"`
	Key     string          `json:"key,omitempty"`
	Message string          `json:"message"`
}

func warning(code, key, message string) Diagnostic {
	return Diagnostic{Level: LevelWarning, Code: code, Key: key, Message: message}
}

func conflict(code, key, message string) Diagnostic {
	return Diagnostic{Level: LevelError, Code: code, Key: key, Message: message}
}
