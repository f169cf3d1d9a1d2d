package document

// ErrorCode categorizes document errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	SerializeError  ErrorCode = "SerializeError"
	ValidationError ErrorCode = "ValidationError"
	ConversionError ErrorCode = "ConversionError"
)

// Error is a structured error with an optional source line and JSON Pointer.
type Error struct {
	Code        ErrorCode
	Message     string
	Location    string // file path or URL
	Line        int    // 1-based; 0 when unknown
	JSONPointer string // e.g. "#/paths/~1pets/get"
	Cause       error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Cause }
