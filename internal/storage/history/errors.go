package history

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrBucketNotFound = errors.New("bucket not found")
	ErrNilDB          = errors.New("database connection is nil")
	ErrNilRecord      = errors.New("record is nil")
)
