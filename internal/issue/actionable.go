// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

// ActionableError carries the context the CLI needs to render a useful
// failure: the operation that failed, the script/pack/config file involved,
// and what the user can do about it. The analyzer's load paths build these
// through ErrorContext:
//
//	return issue.NewErrorContext().
//		WithOperation("load source pack").
//		WithResource("./toolkit.shpack").
//		WithSuggestion("Run 'shdeps source validate ./toolkit.shpack'").
//		Wrap(err).
//		BuildError()
type ActionableError struct {
	// Operation is the verb phrase that failed ("load configuration",
	// "analyze script").
	Operation string

	// Resource is the file or entity involved, when there is one.
	Resource string

	// Suggestions are remediation hints, printed under the message.
	Suggestions []string

	// Cause is the underlying error.
	Cause error
}

// ErrorContext accumulates ActionableError fields across the span of an
// operation, so a load routine can attach the resource up front and the
// cause at the failure site.
type ErrorContext struct {
	operation   string
	resource    string
	suggestions []string
	cause       error
}

// NewErrorContext returns an empty builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// Error returns the one-line form: failed to <operation>: <resource>: <cause>.
func (e *ActionableError) Error() string {
	var msg strings.Builder
	msg.WriteString("failed to ")
	msg.WriteString(e.Operation)
	if e.Resource != "" {
		msg.WriteString(": ")
		msg.WriteString(e.Resource)
	}
	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}
	return msg.String()
}

// Unwrap exposes the cause to errors.Is/As.
func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the error for terminal display: the one-line message, the
// suggestions as bullets, and — in verbose mode — the numbered cause chain.
func (e *ActionableError) Format(verbose bool) string {
	var msg strings.Builder
	msg.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n")
		for _, suggestion := range e.Suggestions {
			msg.WriteString("\n  • ")
			msg.WriteString(suggestion)
		}
	}

	if verbose && e.Cause != nil {
		msg.WriteString("\n\nError chain:")
		for err, depth := e.Cause, 1; err != nil; err, depth = errors.Unwrap(err), depth+1 {
			fmt.Fprintf(&msg, "\n  %d. %s", depth, err.Error())
		}
	}

	return msg.String()
}

// WithOperation sets the verb phrase that failed. It is the only required
// field.
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.operation = op
	return c
}

// WithResource records the file, path, or entity involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.resource = res
	return c
}

// WithSuggestion appends one remediation hint. Call repeatedly for more.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.suggestions = append(c.suggestions, sug)
	return c
}

// Wrap records the underlying cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.cause = err
	return c
}

// BuildError materializes the ActionableError. It returns nil when no
// operation was set, so a context built on a success path costs nothing.
func (c *ErrorContext) BuildError() error {
	if c.operation == "" {
		return nil
	}
	return &ActionableError{
		Operation:   c.operation,
		Resource:    c.resource,
		Suggestions: c.suggestions,
		Cause:       c.cause,
	}
}
