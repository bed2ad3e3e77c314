// Package resource provides shared limits for CPU workers and background IO.
package resource
