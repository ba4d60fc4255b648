// Package types defines the Pantry and ItemStore interfaces, the Item
// entity, configuration, and the standard errors for the Pantry record
// store.
package types
