package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/viant/rescache/schema"
)

var (
	// ErrSchemaMismatch is returned when a row does not have the column
	// count of its resource type.
	ErrSchemaMismatch = errors.New("store: schema mismatch")
	// ErrUnknownAttribute is returned for filters or sorts on attributes the
	// resource type does not declare.
	ErrUnknownAttribute = errors.New("store: unknown attribute")
	// ErrUnknownResourceType is returned for types missing from the registry.
	ErrUnknownResourceType = errors.New("store: unknown resource type")
)

func unknownAttribute(rt *schema.ResourceType, name string) error {
	return fmt.Errorf("%w: %s.%s; supported attributes: %s", ErrUnknownAttribute, rt.Name, name,
		strings.Join(rt.SupportedAttributes(), ", "))
}
