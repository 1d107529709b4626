// Package ident models message identifiers as a tagged value: either a
// server-confirmed id or a locally generated temporary one. Reconciliation
// matches on the tag instead of inspecting string prefixes.
package ident

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

const tempPrefix = "temp-"

// ID identifies a message. The zero value is an empty confirmed id.
type ID struct {
	temp   bool
	seq    uint64
	suffix string
	server string
}

// confirmed builds an ID from a server-assigned identifier.
func confirmed(serverID string) ID {
	return ID{server: serverID}
}

// Temporary reports whether the id is a not-yet-confirmed placeholder.
func (id ID) Temporary() bool { return id.temp }

// String renders the id for display and store keys. Temporary ids carry a
// reserved prefix so a token read back from the store round-trips via Parse.
func (id ID) String() string {
	if id.temp {
		return fmt.Sprintf("%s%d-%s", tempPrefix, id.seq, id.suffix)
	}
	return id.server
}

// Parse rebuilds an ID from its string form. Anything without the reserved
// prefix is a confirmed server id.
func Parse(s string) ID {
	rest, ok := strings.CutPrefix(s, tempPrefix)
	if !ok {
		return confirmed(s)
	}
	seqStr, suffix, ok := strings.Cut(rest, "-")
	if !ok {
		return confirmed(s)
	}
	seq, err := strconv.ParseUint(seqStr, 10, 64)
	if err != nil {
		return confirmed(s)
	}
	return ID{temp: true, seq: seq, suffix: suffix}
}

// Generator issues temporary ids unique within a session: a monotonic
// counter plus a random suffix so two sessions cannot collide either.
type Generator struct {
	counter atomic.Uint64
}

// NewTemporary returns the next temporary id.
func (g *Generator) NewTemporary() ID {
	return ID{
		temp:   true,
		seq:    g.counter.Add(1),
		suffix: uuid.NewString()[:8],
	}
}
