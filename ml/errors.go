package ml

import (
	"errors"
	"fmt"
)

var (
	ErrUnseenCategory  = errors.New("unseen category")
	ErrUnknownCode     = errors.New("unknown category code")
	ErrFeatureMismatch = errors.New("feature vector does not match bundle")
	ErrNotFitted       = errors.New("model not trained")
)

// UnseenCategoryError is returned when a categorical value was never observed
// while the encoding table was fitted.
type UnseenCategoryError struct {
	Field string
	Value string
}

func (e *UnseenCategoryError) Error() string {
	return fmt.Sprintf("%s %q was not seen during training", e.Field, e.Value)
}

func (e *UnseenCategoryError) Unwrap() error { return ErrUnseenCategory }

// UnknownCodeError is the decode-side counterpart of UnseenCategoryError.
type UnknownCodeError struct {
	Field string
	Code  int
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("%s code %d is out of range", e.Field, e.Code)
}

func (e *UnknownCodeError) Unwrap() error { return ErrUnknownCode }

// ArtifactLoadError wraps every failure to read or validate a persisted bundle.
// A process that gets one must not serve predictions.
type ArtifactLoadError struct {
	Path string
	Err  error
}

func (e *ArtifactLoadError) Error() string {
	return fmt.Sprintf("load bundle %s: %v", e.Path, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error { return e.Err }
