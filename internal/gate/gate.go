package gate

import (
	"context"
	"fmt"

	"github.com/roach88/eventdb/internal/store"
)

// CurrentDBVersion is the on-disk format revision this build reads and writes.
const CurrentDBVersion uint64 = 3

// NativeEndianness is the byte-order tag this build writes.
const NativeEndianness uint64 = 1

// ExportCommand is exempt from strict version checking by default.
const ExportCommand = "export"

// Outcome is the result of the compatibility decision.
type Outcome int

const (
	// OutcomeCompatible means the store matches the build; nothing to do.
	OutcomeCompatible Outcome = iota

	// OutcomeBootstrap means the store is new; write the metadata record.
	OutcomeBootstrap

	// OutcomeReadOnlyLegacy means the store is older (or unversioned) and
	// the command is exempt; proceed without writing.
	OutcomeReadOnlyLegacy

	// OutcomeTooOld means the store predates the build.
	OutcomeTooOld

	// OutcomeTooNew means the store postdates the build.
	OutcomeTooNew

	// OutcomeEndiannessMismatch means the store was written with a foreign
	// byte order.
	OutcomeEndiannessMismatch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompatible:
		return "compatible"
	case OutcomeBootstrap:
		return "bootstrap"
	case OutcomeReadOnlyLegacy:
		return "read-only-legacy"
	case OutcomeTooOld:
		return "too-old"
	case OutcomeTooNew:
		return "too-new"
	case OutcomeEndiannessMismatch:
		return "endianness-mismatch"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// State is what the gate observed in the store.
type State struct {
	Meta      store.Meta
	HasMeta   bool
	HasEvents bool // only probed when HasMeta is false
}

// FoundVersion is the format revision the state represents. Stores
// without metadata are version 0.
func (s State) FoundVersion() uint64 {
	if !s.HasMeta {
		return 0
	}
	return s.Meta.DBVersion
}

// Gate checks store compatibility.
type Gate struct {
	// Version is the format revision the build expects.
	Version uint64

	// Endianness is the build's native byte-order tag.
	Endianness uint64

	// ExemptCommands may read stores older than Version.
	ExemptCommands map[string]bool
}

// New returns a gate for this build, exempting the given commands. A nil
// slice exempts only "export"; an empty one exempts nothing.
func New(exempt []string) *Gate {
	if exempt == nil {
		exempt = []string{ExportCommand}
	}
	g := &Gate{
		Version:        CurrentDBVersion,
		Endianness:     NativeEndianness,
		ExemptCommands: make(map[string]bool, len(exempt)),
	}
	for _, cmd := range exempt {
		g.ExemptCommands[cmd] = true
	}
	return g
}

// Decide maps an observed state and command to an outcome. The byte-order
// check runs before any version comparison.
func (g *Gate) Decide(state State, command string) Outcome {
	exempt := g.ExemptCommands[command]

	if !state.HasMeta {
		switch {
		case exempt:
			return OutcomeReadOnlyLegacy
		case state.HasEvents:
			return OutcomeTooOld
		default:
			return OutcomeBootstrap
		}
	}

	switch v := state.Meta.DBVersion; {
	case state.Meta.Endianness != g.Endianness:
		return OutcomeEndiannessMismatch
	case v < g.Version && exempt:
		return OutcomeReadOnlyLegacy
	case v < g.Version:
		return OutcomeTooOld
	case v > g.Version:
		return OutcomeTooNew
	default:
		return OutcomeCompatible
	}
}

// Observe reads the gate's inputs from txn. Events are only probed when the
// metadata record is absent.
func (g *Gate) Observe(ctx context.Context, txn *store.Txn) (State, error) {
	meta, found, err := store.LookupMeta(ctx, txn, store.MetaKey)
	if err != nil {
		return State{}, err
	}
	if found {
		return State{Meta: meta, HasMeta: true}, nil
	}

	hasEvents, err := store.HasEvents(ctx, txn)
	if err != nil {
		return State{}, err
	}
	return State{HasEvents: hasEvents}, nil
}

// Check runs the compatibility decision for command against txn. It writes
// only when bootstrapping a brand-new store, laying down the schema and the
// metadata record inside txn; committing is the caller's job. Every other
// outcome leaves the store untouched. The returned outcome is meaningful
// when err is nil.
func (g *Gate) Check(ctx context.Context, txn *store.Txn, command string) (Outcome, error) {
	state, err := g.Observe(ctx, txn)
	if err != nil {
		return 0, fmt.Errorf("check db version: %w", err)
	}

	outcome := g.Decide(state, command)
	switch outcome {
	case OutcomeCompatible, OutcomeReadOnlyLegacy:
		return outcome, nil
	case OutcomeBootstrap:
		meta := store.Meta{DBVersion: g.Version, Endianness: g.Endianness}
		if err := store.Bootstrap(ctx, txn, meta); err != nil {
			return 0, fmt.Errorf("bootstrap db metadata: %w", err)
		}
		return outcome, nil
	case OutcomeTooOld:
		return outcome, NewTooOldError(state.FoundVersion(), g.Version)
	case OutcomeTooNew:
		return outcome, NewTooNewError(state.FoundVersion(), g.Version)
	case OutcomeEndiannessMismatch:
		return outcome, NewEndiannessError(state.Meta.Endianness, g.Endianness)
	default:
		return outcome, fmt.Errorf("check db version: unhandled outcome %s", outcome)
	}
}
