// Package ratelimit provides the process-wide request gate shared by every
// outbound Bangumi call, including retries.
package ratelimit
