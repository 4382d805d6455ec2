package oauthflow

import (
	"net/url"
)

// CallbackKind classifies what the identity provider sent back
type CallbackKind int

const (
	// CallbackNone means the URL carries no callback parameters
	CallbackNone CallbackKind = iota

	// CallbackError means the identity provider reported an error
	CallbackError

	// CallbackCode means the identity provider returned an authorization code and a state
	CallbackCode
)

// previewLength is the amount of characters of a code or state shown to the operator
var previewLength = 20

// callbackParams are stripped from the visible URL once a callback was handled
var callbackParams = []string{"code", "state", "error", "error_description", "error_uri", "session_state", "iss"}

// Callback holds the parameters of an authorization response
type Callback struct {
	Kind             CallbackKind
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// ParseCallback inspects the query of a page load for an authorization response.
// An error takes precedence; a code is only recognized together with a state.
func ParseCallback(query url.Values) Callback {
	if errCode := query.Get("error"); errCode != "" {
		return Callback{
			Kind:             CallbackError,
			Error:            errCode,
			ErrorDescription: query.Get("error_description"),
		}
	}

	code, state := query.Get("code"), query.Get("state")
	if code != "" && state != "" {
		return Callback{
			Kind:  CallbackCode,
			Code:  code,
			State: state,
		}
	}

	return Callback{Kind: CallbackNone}
}

// ErrorReport is what the operator sees of an identity provider error
type ErrorReport struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// CodeReport is what the operator sees of a received authorization code.
// The code is not redeemed by the harness.
type CodeReport struct {
	Code        string `json:"code"`
	State       string `json:"state"`
	StateStored bool   `json:"state_stored"`
	StateMatch  bool   `json:"state_match"`
	Note        string `json:"note"`
}

// Report builds the value presented to the operator for this callback.
// storedState is the state saved before the redirect (empty if none); a mismatch is reported, never raised.
// Report returns nil for CallbackNone.
func (callback Callback) Report(storedState string) any {
	switch callback.Kind {
	case CallbackError:
		return &ErrorReport{
			Error:            callback.Error,
			ErrorDescription: callback.ErrorDescription,
		}
	case CallbackCode:
		return &CodeReport{
			Code:        Preview(callback.Code),
			State:       Preview(callback.State),
			StateStored: storedState != "",
			StateMatch:  storedState != "" && storedState == callback.State,
			Note:        "authorization code received; it is not exchanged for a token, paste a token obtained elsewhere",
		}
	default:
		return nil
	}
}

// Preview truncates a value for display
func Preview(value string) string {
	runes := []rune(value)
	if len(runes) <= previewLength {
		return value
	}
	return string(runes[:previewLength]) + "..."
}

// StripQuery returns the given URL without the callback parameters.
// Unrelated parameters are kept; if none remain, the result has no trailing '?'.
func StripQuery(target *url.URL) string {
	stripped := *target
	query := stripped.Query()
	for _, param := range callbackParams {
		query.Del(param)
	}
	stripped.RawQuery = query.Encode()
	stripped.ForceQuery = false
	return stripped.String()
}
