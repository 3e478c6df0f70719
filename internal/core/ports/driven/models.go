package driven

// ModelStore resolves model identifiers to local file paths.
// The core only reads availability and path; downloads are handled
// elsewhere.
type ModelStore interface {
	// Path returns the local file path for a model identifier.
	// Returns domain.ErrModelUnavailable when the file is not present.
	Path(id string) (string, error)

	// Available reports whether the model file is present locally.
	Available(id string) bool
}
