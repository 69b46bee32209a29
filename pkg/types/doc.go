// Package types defines the Node entity, its Record value form, the Workspace
// interface implemented by persistence backends, and the standard errors for
// the treesync storage system.
package types
