package controller

import "fmt"

// ConfigError marks a fatal configuration error detected by the
// constructors, such as an empty dataset or a nonpositive target N. The caller
// must abort before any mutation; no state is touched once this is
// returned.
type ConfigError struct {
	Reason string
}

func (e ConfigError) Error() string { return "controller: configuration error: " + e.Reason }

// UnknownKeyError marks a rejected judgment: the assessor submitted a key
// that is not present in the dataset. The rest of the batch still
// applies.
type UnknownKeyError struct {
	Key string
}

func (e UnknownKeyError) Error() string {
	return fmt.Sprintf("controller: judgment key %q not found in dataset", e.Key)
}
