package models

import "errors"

// ErrDocumentNotFound is returned by document stores when a user has no
// persisted mood-board document yet.
var ErrDocumentNotFound = errors.New("document not found")
