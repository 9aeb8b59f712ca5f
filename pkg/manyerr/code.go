// Package manyerr implements the numeric, templated error taxonomy shared by
// every layer of the protocol (spec §7): a signed code, an optional message
// template with {name} placeholders, and a string argument map.
package manyerr

import "fmt"

// Code is a protocol error code. Negative ranges are reserved per §7:
// -1..-999 generic/transport, -100..-199 identity, -1000..-1999 request,
// -2000..-2999 server, -10000 and below attribute-specific (module_id *
// -10000 - attribute_code). Non-negative codes are application specific.
type Code int64

const (
	CodeUnknown                  Code = -1
	CodeMessageTooLong            Code = -2
	CodeDeserializationError      Code = -3
	CodeSerializationError        Code = -4
	CodeUnexpectedEmptyRequest    Code = -5
	CodeUnexpectedEmptyResponse   Code = -6
	CodeUnexpectedTransportError  Code = -7
	CodeCouldNotRouteMessage      Code = -8
	CodeInvalidAttributeID        Code = -9
	CodeInvalidAttributeArguments Code = -10
	CodeAttributeNotFound         Code = -11

	CodeInvalidIdentity             Code = -100
	CodeInvalidIdentityPrefix        Code = -101
	CodeInvalidIdentityKind          Code = -102
	CodeInvalidIdentitySubResourceID Code = -103
	CodeSenderCannotBeAnonymous      Code = -104

	CodeInvalidMethodName       Code = -1000
	CodeInvalidFromIdentity      Code = -1001
	CodeInvalidToIdentity        Code = -1002
	CodeCouldNotVerifySignature  Code = -1003
	CodeUnknownDestination       Code = -1004
	CodeEmptyEnvelope            Code = -1005
	CodeTimestampOutOfRange      Code = -1006
	CodeRequiredFieldMissing     Code = -1007
	CodeNonWebAuthnRequestDenied Code = -1008

	CodeInternalServerError Code = -2000
)

var messageTemplates = map[Code]string{
	CodeUnknown:                   "Unknown error: {message}",
	CodeMessageTooLong:            "Message is too long. Max allowed size is {max} bytes.",
	CodeDeserializationError:      "Deserialization error:\n{details}",
	CodeSerializationError:        "Serialization error:\n{details}",
	CodeUnexpectedEmptyRequest:    "Request of a message was unexpectedly empty.",
	CodeUnexpectedEmptyResponse:   "Response of a message was unexpectedly empty.",
	CodeUnexpectedTransportError:  "The transport returned an error unexpectedly:\n{inner}",
	CodeCouldNotRouteMessage:      "Could not find a handler for the message.",
	CodeInvalidAttributeID:        "Unexpected attribute ID: {id}.",
	CodeInvalidAttributeArguments: "Attribute does not have the right arguments.",
	CodeAttributeNotFound:         "Expected attribute {id} not found.",

	CodeInvalidIdentity:             "Identity is invalid (does not follow the protocol).",
	CodeInvalidIdentityPrefix:       "Identity string did not start with the right prefix. Expected 'm', was '{actual}'.",
	CodeInvalidIdentityKind:         `Identity kind "{actual}" was not recognized.`,
	CodeInvalidIdentitySubResourceID: "Invalid Subresource ID. Subresource IDs are 31 bits.",
	CodeSenderCannotBeAnonymous:      "Invalid Identity; the sender cannot be anonymous.",

	CodeInvalidMethodName:       `Invalid method name: "{method}".`,
	CodeInvalidFromIdentity:     "The identity of the from field is invalid or unexpected.",
	CodeInvalidToIdentity:       "The identity of the to field is invalid or unexpected.",
	CodeCouldNotVerifySignature: "Could not verify the signature: {details}.",
	CodeUnknownDestination:      "Unknown destination for message.\nThis is \"{this}\", message was for \"{to}\".",
	CodeEmptyEnvelope:           "An envelope must contain a payload.",
	CodeTimestampOutOfRange:     "The message's timestamp is out of the accepted range of the server.",
	CodeRequiredFieldMissing:    "Field is required but missing: '{field}'.",
	CodeNonWebAuthnRequestDenied: "Non-WebAuthn request denied for endpoint '{endpoint}'.",

	CodeInternalServerError: "An internal server error happened.",
}

// IsAttributeSpecific reports whether code belongs to an attribute's private
// error space (module_id * -10000 - attribute_code, per §7).
func (c Code) IsAttributeSpecific() bool { return c <= -10000 }

// IsApplicationSpecific reports whether code is a non-negative,
// module-defined error.
func (c Code) IsApplicationSpecific() bool { return c >= 0 }

// HasTemplate reports whether c has a built-in message template, i.e.
// whether this build recognizes the code at all.
func (c Code) HasTemplate() bool {
	_, ok := messageTemplates[c]
	return ok
}

func (c Code) String() string {
	if tpl, ok := messageTemplates[c]; ok {
		return tpl
	}
	return fmt.Sprintf("%d", int64(c))
}

// AttributeCode builds the attribute-specific code for attributeID's local
// error number n (§7).
func AttributeCode(attributeID uint32, n uint32) Code {
	return Code(int64(attributeID)*-10000 - int64(n))
}
