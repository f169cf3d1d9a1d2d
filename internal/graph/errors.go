package graph

import "errors"

var (
	ErrNodeNotFound     = errors.New("node not found")
	ErrEdgeNotFound     = errors.New("edge not found")
	ErrRootNode         = errors.New("root node cannot be edited or deleted")
	ErrCategoryMismatch = errors.New("properties do not match node category")
	ErrUnknownCategory  = errors.New("unknown node category")
	ErrUnknownProperty  = errors.New("unknown property")
	ErrInvalidEdge      = errors.New("invalid edge")
)

// CompileErrorCode categorizes compile failures.
type CompileErrorCode string

const (
	// PropertyDecodeError: a JSON-valued property is not valid JSON, or a
	// select property holds a value outside its options.
	PropertyDecodeError CompileErrorCode = "PropertyDecodeError"
	// AmbiguousParentError: a Method node touches Path nodes naming more than
	// one path.
	AmbiguousParentError CompileErrorCode = "AmbiguousParentError"
)

// CompileError names the node and property that stopped a compile.
type CompileError struct {
	Code     CompileErrorCode
	NodeID   string
	Property string
	Message  string
	Cause    error
}

func (e *CompileError) Error() string { return e.Message }
func (e *CompileError) Unwrap() error { return e.Cause }
