package dashboard

// User-facing messages. Transport failures are reported identically whatever
// the cause; the wrapped error is kept for logs.
const (
	MsgNoFileChosen       = "no file chosen"
	MsgInvalidFileType    = "invalid file type"
	MsgUploadFailed       = "upload failed"
	MsgCredentialsMissing = "username and password required"
	MsgPasswordMismatch   = "passwords do not match"
)

// ValidationError blocks an action before any network call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// TransportError reports a failed call to the analytics service. Op names the
// user action ("login", "registration"); the message never distinguishes
// network, 4xx and 5xx causes.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + " failed" }

func (e *TransportError) Unwrap() error { return e.Err }

// UploadError is the TransportError raised by Upload.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return MsgUploadFailed }

func (e *UploadError) Unwrap() error { return e.Err }
