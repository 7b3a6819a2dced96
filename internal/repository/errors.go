// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers to distinguish between failure scenarios: ErrDuplicateService
// signals that a (route, travel date) pair already has a generated
// instance, which callers treat as "skip", never as a fatal condition.
package repository

import "errors"

// ErrRouteNotFound is returned when a route template id does not exist.
var ErrRouteNotFound = errors.New("route template not found")

// ErrLayoutNotFound is returned when a layout template id does not exist.
var ErrLayoutNotFound = errors.New("layout template not found")

// ErrServiceNotFound is returned when a service instance id does not exist.
var ErrServiceNotFound = errors.New("service instance not found")

// ErrUserNotFound is returned when a user lookup matches no row.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when registration hits the unique email index.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicateService is returned when inserting a service instance
// violates the unique (route_id, travel_date) index.  The index is the
// backstop for expansion idempotence; the expander also pre-checks.
var ErrDuplicateService = errors.New("service already generated for this route and date")
