// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package protocolnode implements the protocol tree of spec.md §4.2: a
// parent/child hierarchy of protocol instances, each with a globally
// unique full name and a scoped on-disk working directory, rooted in a
// node that alone owns the active-party roster.
package protocolnode

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/verificatum/vcr/board"
	"github.com/verificatum/vcr/fsutil"
	vcrlog "github.com/verificatum/vcr/log"
	"github.com/verificatum/vcr/random"
	"github.com/verificatum/vcr/set"
	"github.com/verificatum/vcr/vcrerr"
)

var sidPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,255}$`)

const (
	minParties = 1
	maxParties = 25
	maxRbitlen = 256
	minCert    = 1
	maxCert    = 256
)

// Node is one scope of the protocol tree. Every field set at
// construction is immutable for the node's lifetime; the only mutable
// state is the root's active-party roster, guarded by rosterMu.
type Node struct {
	k       int
	j       int
	rbitlen int
	cert    int
	sid     string
	role    string

	fullName  string
	directory string

	parent *Node // weak upward reference; never owns parent
	root   *Node // shortcut to the root of this tree

	random  random.Source
	log     vcrlog.Logger
	console vcrlog.Console

	// bb is the BulletinBoard scoped to this same node, if the caller
	// attached one (AttachBoard on the root, inherited by NewChild).
	// spec.md §4.2/§4.5 treat a node's working directory and its board
	// scope as one release unit (delete_state releases both; see
	// DeleteState), so nil here just means the caller is managing them
	// separately and DeleteState/SetActive fall back to the node-only
	// behavior.
	bb *board.Board

	// Root-only. A non-root Node leaves these at their zero value and
	// always defers through root.
	rosterMu sync.Mutex
	active   []bool // length k+1, index 0 unused

	names *nameRegistry // shared across the whole tree, owned by root

	tmp *tmpRegistrar // shared across the whole tree, owned by root
}

// nameRegistry enforces spec.md §8 invariant 3 within one tree: any two
// ProtocolNode instances sharing a root have distinct full_name. Each
// NewRoot creates a fresh registry, so separate roots are not checked
// against each other.
type nameRegistry struct {
	mu   sync.Mutex
	seen set.Set[string]
}

func newNameRegistry() *nameRegistry {
	return &nameRegistry{seen: set.Of[string]()}
}

func (r *nameRegistry) claim(fullName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen.Contains(fullName) {
		return fmt.Errorf("%w: full_name %q already in use in this execution", vcrerr.ErrInvalidArg, fullName)
	}
	r.seen.Add(fullName)
	return nil
}

// RootParams are the inputs to NewRoot (spec.md §4.2 "Construction (root)").
type RootParams struct {
	K       int
	J       int
	Rbitlen int
	Cert    int
	Sid     string
	Role    string

	Directory string

	// Random is the resolved random source. If it is a *random.Prg, NewRoot
	// reseeds it from SeedFile/TmpSeedFile before the node becomes usable;
	// failure to do so is fatal to construction.
	Random      random.Source
	SeedFile    string
	TmpSeedFile string

	Log     vcrlog.Logger
	Console vcrlog.Console
}

func validateShared(k, j, rbitlen, cert int, sid string) error {
	if k < minParties || k > maxParties {
		return fmt.Errorf("%w: party count k=%d must be in [%d,%d]", vcrerr.ErrInvalidArg, k, minParties, maxParties)
	}
	if j < 1 || j > k {
		return fmt.Errorf("%w: party index j=%d must be in [1,%d]", vcrerr.ErrInvalidArg, j, k)
	}
	if rbitlen < 0 || rbitlen > maxRbitlen {
		return fmt.Errorf("%w: rbitlen=%d must be in [0,%d]", vcrerr.ErrInvalidArg, rbitlen, maxRbitlen)
	}
	if cert < minCert || cert > maxCert {
		return fmt.Errorf("%w: cert=%d must be in [%d,%d]", vcrerr.ErrInvalidArg, cert, minCert, maxCert)
	}
	if !sidPattern.MatchString(sid) {
		return fmt.Errorf("%w: sid %q does not match [A-Za-z][A-Za-z0-9_]{0,255}", vcrerr.ErrInvalidArg, sid)
	}
	return nil
}

// NewRoot constructs the root of a protocol tree. Every step must
// succeed or the construction fails and any partially created resource
// (the working directory, its tmp subdirectory) is removed before the
// error is returned.
func NewRoot(p RootParams) (*Node, error) {
	if err := validateShared(p.K, p.J, p.Rbitlen, p.Cert, p.Sid); err != nil {
		return nil, err
	}
	if p.Role == "" {
		return nil, fmt.Errorf("%w: root requires a non-empty role", vcrerr.ErrInvalidArg)
	}
	if p.Random == nil {
		return nil, fmt.Errorf("%w: root requires a random source", vcrerr.ErrInvalidArg)
	}
	log := p.Log
	if log == nil {
		log = vcrlog.NewNoOp()
	}
	console := p.Console
	if console == nil {
		console = vcrlog.NoConsole{}
	}

	fullName := p.Role + "." + p.Sid
	directory := p.Directory

	if err := fsutil.CreateScopedDir(directory); err != nil {
		return nil, err
	}
	cleanup := func() { _ = fsutil.DeleteTree(directory) }

	if prg, ok := p.Random.(*random.Prg); ok {
		if err := prg.ReseedFrom(p.SeedFile, p.TmpSeedFile); err != nil {
			cleanup()
			return nil, err
		}
	}

	n := &Node{
		k:         p.K,
		j:         p.J,
		rbitlen:   p.Rbitlen,
		cert:      p.Cert,
		sid:       p.Sid,
		role:      p.Role,
		fullName:  fullName,
		directory: directory,
		random:    p.Random,
		log:       log,
		console:   console,
		names:     newNameRegistry(),
		tmp:       newTmpRegistrar(filepath.Join(directory, "tmp")),
	}
	n.root = n

	if err := n.names.claim(fullName); err != nil {
		cleanup()
		return nil, err
	}

	if err := n.loadOrInitActive(); err != nil {
		cleanup()
		return nil, err
	}

	return n, nil
}

// AttachBoard associates bb, the BulletinBoard scoped to this same
// node, with the node: subsequent DeleteState calls also release bb's
// transport slots (spec.md §4.2 "delete_state releases both"), and
// subsequent SetActive calls also forward the roster to bb. Only valid
// on the root; a child node inherits its board from the parent the way
// it inherits everything else shared across the tree (see NewChild).
func (n *Node) AttachBoard(bb *board.Board) error {
	if !n.IsRoot() {
		return fmt.Errorf("%w: AttachBoard is only valid on the root node", vcrerr.ErrInvalidArg)
	}
	n.bb = bb
	return nil
}

// NewChild constructs a node rooted at parent, inheriting party count,
// index, random source, rbitlen, cert, logger and console by reference.
// If parent has an attached board, the child inherits the matching
// board.Child(role, sid) scope automatically.
func NewChild(parent *Node, role, sid string) (*Node, error) {
	if parent == nil {
		return nil, fmt.Errorf("%w: child construction requires a parent", vcrerr.ErrInvalidArg)
	}
	if err := validateShared(parent.k, parent.j, parent.rbitlen, parent.cert, sid); err != nil {
		return nil, err
	}
	if role == "" {
		return nil, fmt.Errorf("%w: child requires a non-empty role", vcrerr.ErrInvalidArg)
	}

	fullName := parent.fullName + "/" + role + "." + sid
	directory := filepath.Join(parent.directory, role+"."+sid)

	if err := fsutil.CreateScopedDir(directory); err != nil {
		return nil, err
	}
	cleanup := func() { _ = fsutil.DeleteTree(directory) }

	var childBoard *board.Board
	if parent.bb != nil {
		childBoard = parent.bb.Child(role, sid)
	}

	n := &Node{
		k:         parent.k,
		j:         parent.j,
		rbitlen:   parent.rbitlen,
		cert:      parent.cert,
		sid:       sid,
		role:      role,
		fullName:  fullName,
		directory: directory,
		parent:    parent,
		root:      parent.root,
		random:    parent.random,
		log:       parent.log,
		console:   parent.console,
		names:     parent.root.names,
		tmp:       parent.root.tmp,
		bb:        childBoard,
	}

	if err := n.names.claim(fullName); err != nil {
		cleanup()
		return nil, err
	}

	return n, nil
}

// FullName returns the globally-unique "/"-joined scope path.
func (n *Node) FullName() string { return n.fullName }

// Directory returns the node's working directory.
func (n *Node) Directory() string { return n.directory }

// K returns the party count.
func (n *Node) K() int { return n.k }

// J returns this party's 1-based index.
func (n *Node) J() int { return n.j }

// Rbitlen returns the statistical distance parameter, in bits.
func (n *Node) Rbitlen() int { return n.rbitlen }

// Cert returns the certainty parameter, in bits.
func (n *Node) Cert() int { return n.cert }

// Random returns the shared random source.
func (n *Node) Random() random.Source { return n.random }

// Log returns the node's logger.
func (n *Node) Log() vcrlog.Logger { return n.log }

// Console returns the node's console capability.
func (n *Node) Console() vcrlog.Console { return n.console }

// Parent returns the parent node, or nil at the root.
func (n *Node) Parent() *Node { return n.parent }

// Root returns the root of this node's tree.
func (n *Node) Root() *Node { return n.root }

// IsRoot reports whether n is the root of its tree.
func (n *Node) IsRoot() bool { return n.parent == nil }
