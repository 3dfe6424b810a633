// Package event defines the event record stored by eventdb and its
// canonical JSON encoding.
//
// Events are imported and exported as newline-delimited JSON. The canonical
// encoding is used only for content hashing (trie leaves), never for the
// export wire format, which preserves the raw line as imported.
//
// Key constraints:
//   - Canonical object keys are sorted, no HTML escaping, strings NFC normalized
//   - created_at and kind are integers; floats are rejected on parse
//   - The event package imports nothing internal
package event
