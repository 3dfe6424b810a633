// Package trie provides named authenticated trees stored alongside events.
//
// A Handle is bound to one store transaction. It is created with Init and
// pointed at a named tree with Checkout. Leaves are (key, value) pairs; the
// root of a tree is a binary Merkle hash over its leaves in key order:
//
//	leaf = SHA-256(0x00 || key || value)
//	node = SHA-256(0x01 || left || right)
//
// An odd node at any level is promoted unchanged. The empty tree has the
// all-zero root. Roots are persisted by Commit.
//
// A Handle must not be used after its transaction ends.
package trie
