// Package logging provides structured logging fields and a zap-backed
// logger shared across opx's packages.
package logging

import "time"

// Fields is a fluent builder for structured log fields. Each method returns
// the same map so calls chain: NewFields().Component("x").Operation("y").
type Fields map[string]interface{}

// NewFields returns an empty field set.
func NewFields() Fields {
	return Fields{}
}

// Component records which subsystem emitted the log line.
func (f Fields) Component(name string) Fields {
	f["component"] = name
	return f
}

// Operation records the logical operation in progress.
func (f Fields) Operation(op string) Fields {
	f["operation"] = op
	return f
}

// Resource records the type and, if non-empty, the name of the resource
// being acted on.
func (f Fields) Resource(resourceType, resourceName string) Fields {
	f["resource_type"] = resourceType
	if resourceName != "" {
		f["resource_name"] = resourceName
	}
	return f
}

// Duration records an elapsed time in milliseconds.
func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

// Error records err's message, if non-nil.
func (f Fields) Error(err error) Fields {
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}

// Custom records an arbitrary key/value pair not covered by a dedicated
// method.
func (f Fields) Custom(key string, value interface{}) Fields {
	f[key] = value
	return f
}
