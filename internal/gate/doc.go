// Package gate decides at startup whether the on-disk store is compatible
// with the running build.
//
// The decision is a small table over the metadata record (absent, older,
// current, newer, foreign byte order) and whether the running command is
// exempt from strict checking (by default only "export"):
//
//	metadata   events  exempt   outcome
//	absent     no      no       bootstrap (write schema and metadata)
//	absent     any     yes      read-only legacy, no write
//	absent     yes     no       too old (version 0)
//	endian!=1  -       -        endianness mismatch
//	older      -       yes      read-only legacy
//	older      -       no       too old
//	newer      -       -        too new
//	current    -       -        compatible
//
// Decide evaluates the table; Check gathers the inputs from a transaction
// and performs the bootstrap write, the only one it ever makes.
package gate
