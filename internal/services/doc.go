// Package services defines the shared error taxonomy used to classify
// failures across the reconciliation pipeline.
package services
