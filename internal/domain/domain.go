// Package domain holds the persisted and wire-level types shared across
// the backend: users, notes, job runs, and the generated learning-asset
// bundle.
package domain
