package did

type DocumentErrorType string

const (
	InvalidDid               DocumentErrorType = "InvalidDid"
	InvalidDidMethod         DocumentErrorType = "InvalidDidMethod"
	InvalidDidDocument       DocumentErrorType = "InvalidDidDocument"
	UnableToFetchDidDocument DocumentErrorType = "UnableToFetchDidDocument"
)

// DocumentError is a DID document that could not be located or did not have the expected shape.
type DocumentError struct {
	Type    DocumentErrorType
	Message string
	Cause   error
}

func (e *DocumentError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

type DereferenceErrorType string

const (
	MalformedDid          DereferenceErrorType = "MalformedDid"
	InvalidParameterError DereferenceErrorType = "InvalidParameterError"
)

// DereferenceError is a DID URL that could not be dereferenced against a document.
type DereferenceError struct {
	Type    DereferenceErrorType
	Message string
}

func (e *DereferenceError) Error() string {
	return e.Message
}
