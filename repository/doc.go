// Package repository provides the generic repository and specification
// abstractions registered by the persistence layer, built on Bun.
package repository
