// Package state provides a keyed session store for Telegram bots.
// It is domain-agnostic: callers choose the key and value types and the store
// guarantees that work on one key is serialized while different keys proceed
// in parallel.
package state
