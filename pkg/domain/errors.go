package domain

import "errors"

// ErrToolNotRegistered is returned when a plan step names a tool missing from the registry.
var ErrToolNotRegistered = errors.New("tool not registered")

// ErrToolAlreadyRegistered is returned when a registration replaces an existing binding.
var ErrToolAlreadyRegistered = errors.New("tool already registered")

// ErrMissingArtifact is returned when a required upstream file (e.g. a mask) is absent.
var ErrMissingArtifact = errors.New("missing artifact")

// ErrInvalidArgs is returned when tool arguments cannot be decoded or are incomplete.
var ErrInvalidArgs = errors.New("invalid tool arguments")

// ErrInvalidResult is returned when a tool returns a result that violates the contract.
var ErrInvalidResult = errors.New("invalid tool result")

// ErrObjectNotFound is returned when an object ID is unknown to the object store.
var ErrObjectNotFound = errors.New("object not found")

// ErrUnknownField is returned when updating an object field that does not exist.
var ErrUnknownField = errors.New("unknown object field")

// ErrPlanNotFound is returned when a saved plan cannot be found.
var ErrPlanNotFound = errors.New("plan not found")
