package store

import "errors"

// ErrConflict is returned by IncidentUpdater.Update when expectedVersion no
// longer matches the stored version — a concurrent writer won the race.
var ErrConflict = errors.New("store: conflict, stored version has moved")

// ErrNotFound is returned by an Updater when the keyed entity does not
// exist.
var ErrNotFound = errors.New("store: not found")

// ErrAlreadyTerminal is returned by AuditStatusUpdater.UpdateStatus when the
// audit record is already SUCCESS or FAILED.
var ErrAlreadyTerminal = errors.New("store: audit record already terminal")

// ErrInsufficientAuthority names a kill-switch mutation attempted without
// EMERGENCY_OVERRIDE authority. No store returns it: KillSwitchSetter.Set
// takes no authority, and the caller validates authority before calling Set.
var ErrInsufficientAuthority = errors.New("store: insufficient authority for kill-switch mutation")
