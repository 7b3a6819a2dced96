// Package schedule implements the core temporal logic of the system:
// expanding route templates into dated service instances, building the
// seat inventory for each instance, projecting renderable seat maps and
// answering date/origin/destination queries.
package schedule

import "errors"

// ErrConfiguration marks a malformed or incomplete route template: a
// missing or duplicated base-departure rule, an unparseable "HH:mm"
// value, or an unresolvable layout reference.  Not retried; surfaced to
// the caller as a rejected request.
var ErrConfiguration = errors.New("route configuration error")

// ErrValidation marks malformed caller input such as an unparseable
// date or an out-of-range weekday number.  Surfaced as a bad request.
var ErrValidation = errors.New("validation error")
