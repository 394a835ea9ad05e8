package metadata

import (
	"fmt"
	"net/url"
	"strings"
)

// Attribute keys of the flat custom-attributes encoding. The write order is
// fixed so that an encoded block round-trips byte for byte.
const (
	KeyTransactionID   = "transactionId"
	KeyApplicationName = "applicationName"
	KeyTestIndicator   = "testIndicator"
	KeyEndpointName    = "endpointName"
)

const (
	TestIndicatorTrue  = "true"
	TestIndicatorFalse = "false"
)

// HTTPHeader carries the encoded block on gateway invocations, keeping it out
// of the model-visible request body.
const HTTPHeader = "vigil-custom-attributes"

const pairSeparator = ","

// Classification is the out-of-band metadata block attached to every
// generated inference request. The model never sees these fields; they travel
// in the custom-attributes slot of the capture record and drive the
// include/exclude decision during monitoring preprocessing.
type Classification struct {
	TransactionID   string
	ApplicationName string
	TestIndicator   string
	EndpointName    string
}

// Encode serializes the block as k=v pairs joined by commas, in fixed key
// order. Values are query-escaped so free-form names carrying the separator
// characters still round-trip through Decode with no loss.
func (c Classification) Encode() string {
	pairs := []string{
		KeyTransactionID + "=" + url.QueryEscape(c.TransactionID),
		KeyApplicationName + "=" + url.QueryEscape(c.ApplicationName),
		KeyTestIndicator + "=" + url.QueryEscape(c.TestIndicator),
		KeyEndpointName + "=" + url.QueryEscape(c.EndpointName),
	}
	return strings.Join(pairs, pairSeparator)
}

// Validate checks that the block is complete enough to classify on. A block
// failing validation is treated as test traffic downstream.
func (c Classification) Validate() error {
	if c.TransactionID == "" {
		return fmt.Errorf("%s is empty", KeyTransactionID)
	}
	if c.ApplicationName == "" {
		return fmt.Errorf("%s is empty", KeyApplicationName)
	}
	if c.TestIndicator != TestIndicatorTrue && c.TestIndicator != TestIndicatorFalse {
		return fmt.Errorf("%s has unparseable value %q", KeyTestIndicator, c.TestIndicator)
	}
	return nil
}

// Decode parses a flat attribute string back into a Classification. Keys may
// appear in any order; a duplicate key keeps the last value. Malformed pairs
// and unknown keys are rejected so that corrupted attributes never classify
// as production traffic.
func Decode(raw string) (Classification, error) {
	var c Classification
	if strings.TrimSpace(raw) == "" {
		return c, fmt.Errorf("empty custom attributes")
	}

	for _, pair := range strings.Split(raw, pairSeparator) {
		key, escaped, found := strings.Cut(pair, "=")
		if !found {
			return Classification{}, fmt.Errorf("malformed attribute pair %q", pair)
		}
		value, err := url.QueryUnescape(escaped)
		if err != nil {
			return Classification{}, fmt.Errorf("malformed attribute value in pair %q: %w", pair, err)
		}
		switch key {
		case KeyTransactionID:
			c.TransactionID = value
		case KeyApplicationName:
			c.ApplicationName = value
		case KeyTestIndicator:
			c.TestIndicator = value
		case KeyEndpointName:
			c.EndpointName = value
		default:
			return Classification{}, fmt.Errorf("unknown attribute key %q", key)
		}
	}

	if c.TestIndicator == "" {
		return Classification{}, fmt.Errorf("%s attribute missing", KeyTestIndicator)
	}
	return c, nil
}
