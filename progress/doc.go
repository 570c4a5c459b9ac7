// Package progress keeps aggregated counters of the update passes run by one
// service and notifies an optional callback after every change.
package progress
