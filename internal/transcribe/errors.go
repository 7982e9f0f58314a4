package transcribe

import (
	"errors"
	"net/http"
)

// AudioError means the upload could not be decoded or resampled. The caller
// is at fault.
type AudioError struct {
	Err error
}

func (e *AudioError) Error() string { return "audio processing: " + e.Err.Error() }
func (e *AudioError) Unwrap() error { return e.Err }

// InferenceError means the recognition pipeline failed or timed out.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string { return "inference: " + e.Err.Error() }
func (e *InferenceError) Unwrap() error { return e.Err }

// ErrorDetail maps a Transcribe error to the status code and the short
// message shown to clients.
func ErrorDetail(err error) (int, string) {
	var ae *AudioError
	if errors.As(err, &ae) {
		return http.StatusBadRequest, "Audio processing error: " + ae.Err.Error()
	}
	var ie *InferenceError
	if errors.As(err, &ie) {
		return http.StatusInternalServerError, "Internal server error: " + ie.Err.Error()
	}
	return http.StatusInternalServerError, "Internal server error: " + err.Error()
}
