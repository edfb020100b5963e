// Package notifications pushes library events to the user's devices via
// ntfy. It degrades to a no-op when no topic is configured, so callers can
// notify unconditionally and only log delivery failures.
package notifications
