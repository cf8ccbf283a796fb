// Package event delivers mutation notifications of the store to subscribers.
package event
