package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist, or belongs
	// to a different tenant. Tenant-scope violations are deliberately
	// indistinguishable from absence.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIndexNotInitialised indicates add/search was called before the
	// ANN index was loaded. This is a programmer error; fail fast.
	ErrIndexNotInitialised = errors.New("index not initialised")

	// ErrDimensionMismatch indicates a vector's length does not match the
	// index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnrecognisedModelOutput indicates the text model returned a tensor
	// that is neither a token sequence nor a pre-pooled embedding. There is
	// no silent fallback: a wrong pooling strategy would corrupt every
	// downstream embedding.
	ErrUnrecognisedModelOutput = errors.New("unrecognised model output")

	// ErrUnsupportedVisionOutput indicates the vision model returned a
	// tensor of unsupported rank.
	ErrUnsupportedVisionOutput = errors.New("unsupported vision output format")

	// ErrMissingVocabulary indicates the tokenizer vocabulary file could
	// not be loaded. Fatal at encoder initialisation.
	ErrMissingVocabulary = errors.New("missing vocabulary file")

	// ErrMissingSpecialToken indicates a required special token is absent
	// from the vocabulary. Fatal at encoder initialisation.
	ErrMissingSpecialToken = errors.New("missing required special token")

	// ErrResponseTooLarge indicates a remote fetch exceeded the byte ceiling.
	ErrResponseTooLarge = errors.New("response exceeds size limit")
)
