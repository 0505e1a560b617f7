// Package textutil provides the text normalization used to compare tag
// values across files and the sanitizing helpers for filesystem names.
package textutil
