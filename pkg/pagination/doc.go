// Package pagination walks paginated upstream endpoints sequentially.
//
// The upstream reports the total page count on the first page via the
// X-Pages header. Every page after the first is preceded by a mandatory
// fixed politeness delay, independent of the error-budget backoff. A
// failed page aborts the whole fetch; there is no resumable cursor, a
// fresh call starts over from page 1.
package pagination
