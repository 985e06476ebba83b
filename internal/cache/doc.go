// Package cache provides a byte-bounded LRU used to keep recently loaded
// volumes in memory while patches are extracted from them.
//
// The cache is integrated with resource.Controller: every cached byte is
// reserved there, and when the global limit refuses a reservation the value
// is simply not cached.
package cache
