package cli

import "fmt"

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

type unknownFieldError struct {
	kind  string
	field string
}

func (e unknownFieldError) Error() string {
	return fmt.Sprintf("unknown %s field: %s", e.kind, e.field)
}

func errUnknownField(kind, field string) error {
	return unknownFieldError{kind: kind, field: field}
}
