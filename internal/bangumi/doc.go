// Package bangumi is a typed client for the subset of the Bangumi v0 API the
// exporter needs: the current user, the paged collection list, and the
// per-subject episode collection.
//
// Every attempt, retries included, passes through the shared ratelimit.Gate.
// Failures are tagged with services markers so callers can tell auth
// rejections from network trouble and malformed payloads.
package bangumi
