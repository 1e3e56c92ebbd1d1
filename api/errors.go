package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"nourish/models"
)

// ErrSessionExpired is wrapped by every 401 error. The stored credential
// has already been cleared when a caller sees it.
var ErrSessionExpired = errors.New("authentication failed")

// Kind classifies a failed call by how a caller can recover from it.
type Kind int

const (
	// KindGeneral is any other failure; the user may retry.
	KindGeneral Kind = iota
	// KindAuth means the session is gone; only a new login helps.
	KindAuth
	// KindValidation carries field errors the user can correct.
	KindValidation
	// KindNotFound covers missing resources and ownership refusals.
	KindNotFound
	// KindNetwork means no usable response arrived.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	}
	return "general"
}

// Error is the one error shape callers of this package ever see, whether
// the failure came from the backend, the transport or client-side checks.
type Error struct {
	Kind        Kind
	Message     string
	FieldErrors models.FieldErrors
	StatusCode  int
	Err         error
	// Detail is the backend's own message when Message is fixed, as it is
	// for a 401.
	Detail string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// ValidationError wraps client-side form errors so they travel like server
// validation errors.
func ValidationError(fe models.FieldErrors) *Error {
	msg := "Validation failed"
	if fields := fe.Fields(); len(fields) > 0 {
		msg = fe.First(fields[0])
	}
	return &Error{Kind: KindValidation, Message: msg, FieldErrors: fe}
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// KindOf returns the kind of err, KindGeneral for foreign errors.
func KindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return KindGeneral
}

// IsSessionExpired reports whether err came from a 401.
func IsSessionExpired(err error) bool { return errors.Is(err, ErrSessionExpired) }

// IsValidation reports whether err carries correctable field errors.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound reports 403/404 failures.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

func sessionExpired() *Error {
	return &Error{
		Kind:       KindAuth,
		Message:    "Authentication failed",
		StatusCode: http.StatusUnauthorized,
		Err:        ErrSessionExpired,
	}
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: fmt.Sprintf("Network error: %v", err), Err: err}
}

// parseError builds an *Error from a non-2xx body. The backend sends
// {"message": "..."} for general failures and {"errors": {...}} for
// validation failures, where values are lists, strings or nested objects.
func parseError(body []byte, status int) *Error {
	e := &Error{StatusCode: status, Kind: classify(status)}

	res := gjson.ParseBytes(body)
	if !gjson.ValidBytes(body) || !res.IsObject() {
		e.Message = fmt.Sprintf("HTTP error %d", status)
		return e
	}

	for _, key := range []string{"message", "error", "msg"} {
		if m := res.Get(key); m.Type == gjson.String && m.String() != "" {
			e.Message = m.String()
			break
		}
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("HTTP error %d", status)
	}

	if errs := res.Get("errors"); errs.IsObject() {
		fe := models.FieldErrors{}
		flattenErrors("", errs, fe)
		if !fe.Empty() {
			e.FieldErrors = fe
			if status >= 400 && status < 500 && e.Kind != KindAuth {
				e.Kind = KindValidation
			}
		}
	}
	return e
}

func classify(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindAuth
	case http.StatusForbidden, http.StatusNotFound:
		return KindNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	}
	return KindGeneral
}

func flattenErrors(prefix string, v gjson.Result, fe models.FieldErrors) {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}
	v.ForEach(func(k, val gjson.Result) bool {
		key := join(k.String())
		switch {
		case val.IsArray():
			for i, item := range val.Array() {
				if item.IsObject() {
					flattenErrors(key+"."+strconv.Itoa(i), item, fe)
				} else {
					fe.Add(key, item.String())
				}
			}
		case val.IsObject():
			flattenErrors(key, val, fe)
		default:
			fe.Add(key, val.String())
		}
		return true
	})
}
