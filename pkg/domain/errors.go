package domain

import "errors"

// ErrNotFound is returned when a node or plug cannot be resolved, including
// references to nodes that were deleted after the reference was taken.
var ErrNotFound = errors.New("not found")

// ErrSubscriptionFailed is returned when the host refuses to register a callback.
var ErrSubscriptionFailed = errors.New("subscription failed")

// ErrInvalidSelection is returned when an install is attempted with zero or several selected nodes.
var ErrInvalidSelection = errors.New("exactly one node must be selected")

// ErrAlreadyInstalled is returned when a watcher node already exists in the scene.
var ErrAlreadyInstalled = errors.New("watcher node already exists")

// ErrResolution marks an expected failure to resolve a plug or peer while reacting to an event.
var ErrResolution = errors.New("resolution failure")

// ErrInvalidNode is returned when an operation targets a node that cannot take part in it.
var ErrInvalidNode = errors.New("invalid node")

// ErrUnknownNodeType is returned when creating a node whose type is not registered.
var ErrUnknownNodeType = errors.New("unknown node type")

// ErrAttributeExists is returned when adding an attribute that is already present on a node.
var ErrAttributeExists = errors.New("attribute already exists")

// ErrTypeMismatch is returned when reading or writing a plug with the wrong value kind.
var ErrTypeMismatch = errors.New("attribute type mismatch")

// ErrSceneNotFound is returned when a scene name cannot be found in the store.
var ErrSceneNotFound = errors.New("scene not found")
