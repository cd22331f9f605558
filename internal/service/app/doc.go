// Package app assembles a full sosync client from configuration: the record
// store connection, the notification dispatcher, the coordination engine and
// the membership service. The cobra commands build one App per invocation.
package app
