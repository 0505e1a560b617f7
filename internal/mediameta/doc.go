// Package mediameta defines the value types the reconciler operates on:
// file identities, extracted metadata records, and audio format
// classification.
package mediameta
