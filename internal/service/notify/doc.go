// Package notify defines the notification dispatcher the coordinators
// inform after every status-changing operation.
//
// The dispatcher is an explicit collaborator injected at process start;
// delivery is best-effort and a failed dispatch never fails the operation
// that triggered it. Two implementations ship with the engine: a logging
// dispatcher and a webhook dispatcher that POSTs the notification as JSON.
package notify
