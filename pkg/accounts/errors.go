package accounts

import "fmt"

// StorageError wraps a failure of the underlying database; business-rule
// outcomes are never reported as errors.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("accounts: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
