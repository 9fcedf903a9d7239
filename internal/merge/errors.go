package merge

import "errors"

var (
	ErrSchemaInvalid = errors.New("column schema is missing or empty")
	ErrSourceMissing = errors.New("source folder or template not found")
)
