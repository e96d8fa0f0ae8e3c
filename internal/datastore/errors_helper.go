// Package datastore provides error handling helpers for database operations
package datastore

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/flower-explorer/vistool/internal/errors"
)

// dbError creates a properly categorized database error with context
func dbError(err error, operation, priority string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	if priority != "" {
		builder = builder.Priority(priority)
	}

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// storageUnavailable wraps an open failure. The result matches errors.ErrStorageUnavailable.
func storageUnavailable(err error, backend, target string) error {
	return errors.New(fmt.Errorf("open %s catalog %s: %w: %w", backend, target, errors.ErrStorageUnavailable, err)).
		Component("datastore").
		Category(errors.CategoryStorageUnavailable).
		Priority(errors.PriorityCritical).
		Context("backend", backend).
		Build()
}

// lookupError maps gorm.ErrRecordNotFound to a not-found error and everything else to dbError.
func lookupError(err error, operation, entity string, context ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("datastore", entity, context...)
	}
	return dbError(err, operation, errors.PriorityMedium, context...)
}

// validationError creates a validation error for rejected arguments
func validationError(message, field string, value any) error {
	return errors.Newf("%s", message).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", fmt.Sprintf("%v", value)).
		Build()
}
