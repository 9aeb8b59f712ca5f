package manyerr

import (
	"fmt"
	"sort"
	"strings"
)

// Error is the wire representation of a protocol failure: a code, an
// optional message (defaulting to the code's template), and a string
// argument map used to fill {placeholder} tokens in the template (§7).
type Error struct {
	Code      Code
	Message   string
	Arguments map[string]string
}

// New builds an Error, applying message to the code's default template when
// message is empty.
func New(code Code, message string, args map[string]string) *Error {
	if message == "" {
		message = code.String()
	}
	return &Error{Code: code, Message: message, Arguments: args}
}

// Error implements the error interface, substituting {name} placeholders
// from Arguments into Message.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	for k, v := range e.Arguments {
		msg = strings.ReplaceAll(msg, "{"+k+"}", v)
	}
	return msg
}

// Argument returns a single argument value.
func (e *Error) Argument(key string) (string, bool) {
	v, ok := e.Arguments[key]
	return v, ok
}

// SortedArgumentKeys returns the argument keys in ascending order, used when
// an encoder needs deterministic output.
func (e *Error) SortedArgumentKeys() []string {
	keys := make([]string, 0, len(e.Arguments))
	for k := range e.Arguments {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func withArgs(code Code, kv ...string) *Error {
	args := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		args[kv[i]] = kv[i+1]
	}
	return New(code, "", args)
}

// Unknown builds a -1 generic error wrapping an arbitrary message.
func Unknown(message string) *Error { return withArgs(CodeUnknown, "message", message) }

// MessageTooLong builds a -2 error reporting the maximum permitted size.
func MessageTooLong(max int) *Error {
	return withArgs(CodeMessageTooLong, "max", fmt.Sprintf("%d", max))
}

// DeserializationError builds a -3 error.
func DeserializationError(details string) *Error {
	return withArgs(CodeDeserializationError, "details", details)
}

// SerializationError builds a -4 error.
func SerializationError(details string) *Error {
	return withArgs(CodeSerializationError, "details", details)
}

// UnexpectedEmptyRequest builds a -5 error.
func UnexpectedEmptyRequest() *Error { return New(CodeUnexpectedEmptyRequest, "", nil) }

// UnexpectedEmptyResponse builds a -6 error.
func UnexpectedEmptyResponse() *Error { return New(CodeUnexpectedEmptyResponse, "", nil) }

// CouldNotRouteMessage builds a -8 error.
func CouldNotRouteMessage() *Error { return New(CodeCouldNotRouteMessage, "", nil) }

// InvalidAttributeID builds a -9 error.
func InvalidAttributeID(id uint32) *Error {
	return withArgs(CodeInvalidAttributeID, "id", fmt.Sprintf("%d", id))
}

// AttributeNotFound builds a -11 error.
func AttributeNotFound(id uint32) *Error {
	return withArgs(CodeAttributeNotFound, "id", fmt.Sprintf("%d", id))
}

// InvalidIdentity builds a -100 error.
func InvalidIdentity() *Error { return New(CodeInvalidIdentity, "", nil) }

// SenderCannotBeAnonymous builds a -104 error.
func SenderCannotBeAnonymous() *Error { return New(CodeSenderCannotBeAnonymous, "", nil) }

// InvalidMethodName builds a -1000 error.
func InvalidMethodName(method string) *Error {
	return withArgs(CodeInvalidMethodName, "method", method)
}

// CouldNotVerifySignature builds a -1003 error.
func CouldNotVerifySignature(details string) *Error {
	return withArgs(CodeCouldNotVerifySignature, "details", details)
}

// UnknownDestination builds a -1004 error.
func UnknownDestination(to, this string) *Error {
	return withArgs(CodeUnknownDestination, "to", to, "this", this)
}

// EmptyEnvelope builds a -1005 error.
func EmptyEnvelope() *Error { return New(CodeEmptyEnvelope, "", nil) }

// TimestampOutOfRange builds a -1006 error.
func TimestampOutOfRange() *Error { return New(CodeTimestampOutOfRange, "", nil) }

// RequiredFieldMissing builds a -1007 error.
func RequiredFieldMissing(field string) *Error {
	return withArgs(CodeRequiredFieldMissing, "field", field)
}

// NonWebAuthnRequestDenied builds a -1008 error.
func NonWebAuthnRequestDenied(endpoint string) *Error {
	return withArgs(CodeNonWebAuthnRequestDenied, "endpoint", endpoint)
}

// InternalServerError builds a -2000 error.
func InternalServerError() *Error { return New(CodeInternalServerError, "", nil) }

// AttributeSpecific builds an error in attributeID's private error space.
func AttributeSpecific(attributeID uint32, n uint32, message string, args map[string]string) *Error {
	return New(AttributeCode(attributeID, n), message, args)
}

// ApplicationSpecific builds a module-defined, non-negative error code.
func ApplicationSpecific(code uint32, message string, args map[string]string) *Error {
	return New(Code(code), message, args)
}
