// Package storage provides the key-value persistence layer behind the
// template store.
//
// Every driver implements KV: a blob per key, replaced whole on each Set.
// Set must be atomic with respect to readers (no torn writes); each driver
// documents how it achieves that.
package storage
