package apperror

// AppError carries a user-facing message together with the HTTP status code
// it should be reported with. The wrapped error is for logs only.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError with a status code and message.
func New(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError around an existing error. errors.Is against the
// wrapped error keeps working, which is how handlers match sentinels while
// still surfacing a specific message (e.g. a plugin's veto reason).
func Wrap(err error, code int, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
