// Package icecast isolates all knowledge of the streaming backend's
// administrative protocol.
//
// The backend is an Icecast-compatible server exposing two authenticated
// endpoints:
//
//   - GET /admin/stats
//     Returns a JSON object keyed by mount point. Each value carries the
//     live listener count, peak listener count, bitrate, and the currently
//     playing title for that mount.
//
//   - GET /admin/{action}?mount={mount}
//     Drives a mount. The actions used by this system are "enable" (bring a
//     mount up) and "killsource" (disconnect the source feeding a mount).
//     Success is an HTTP 200 response; anything else is a failure.
//
// Failure semantics
//
// The rest of the system never needs to distinguish between network errors,
// authentication failures, and unhappy HTTP statuses, so the Controller
// interface collapses all of them:
//
//   - Stats returns an empty snapshot when anything goes wrong. Callers must
//     treat an empty snapshot as "no data", never as "zero listeners".
//   - Control returns a ControlResult whose OK flag is false, with the
//     diagnostic preserved in Detail for logging. It never returns an error,
//     forcing callers to branch on the outcome explicitly.
//
// Both paths log the underlying cause when a logger is attached.
package icecast
