// Package conv provides checked integer conversions for the length and id
// fields of the on-disk formats.
package conv
