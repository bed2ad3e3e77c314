// Package mmap maps checkpoint files read-only into memory.
//
// On unix systems the file is mapped with mmap(2) through golang.org/x/sys/unix
// and the kernel is told the data will be read sequentially. Elsewhere the file
// is read into a heap buffer; callers see the same API either way.
package mmap
