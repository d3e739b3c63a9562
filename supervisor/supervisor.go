// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package supervisor wires a root ProtocolNode, BulletinBoard, and
// RandomSource from a resolved config.Parameters (spec.md §4.7),
// performs the startup synchronization, and funnels termination through
// the shutdown package.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/verificatum/vcr/board"
	"github.com/verificatum/vcr/config"
	vcrlog "github.com/verificatum/vcr/log"
	"github.com/verificatum/vcr/protocolnode"
	"github.com/verificatum/vcr/random"
	"github.com/verificatum/vcr/shutdown"
	"github.com/verificatum/vcr/transport"
	"github.com/verificatum/vcr/vcrerr"
)

// Exit codes at the supervisor boundary (spec.md §6 "Process exit
// codes").
const (
	ExitSuccess      = 0
	ExitInvalidArgs  = 1
	ExitIOOrNetwork  = 2
	ExitFatalRefusal = 3
)

// Supervisor owns the root of a running protocol tree: the ProtocolNode,
// its BulletinBoard, and the Transport that backs it.
type Supervisor struct {
	node *protocolnode.Node
	bb   *board.Board
	tr   transport.Transport

	healthy atomic.Bool
}

// New resolves params into a running root: it builds the random source,
// constructs the root ProtocolNode (which reseeds the PRG and
// materializes the working directory), builds and starts the configured
// Transport, attaches the root BulletinBoard, and performs the first
// synchronization message.
//
// log/console default to no-op capabilities (spec.md's "deliberately
// out of scope" collaborators) when nil.
func New(ctx context.Context, params config.Parameters, log vcrlog.Logger, console vcrlog.Console, reg prometheus.Registerer) (*Supervisor, error) {
	if log == nil {
		log = vcrlog.NewNoOp()
	}
	if console == nil {
		console = vcrlog.NoConsole{}
	}

	src, seedFile, tmpSeedFile, err := resolveRandomness(params.Randomness)
	if err != nil {
		return nil, err
	}

	directory := params.Directory
	if !filepath.IsAbs(directory) {
		cwd, cerr := os.Getwd()
		if cerr != nil {
			return nil, fmt.Errorf("%w: resolve cwd: %v", vcrerr.ErrResource, cerr)
		}
		directory = filepath.Join(cwd, directory)
	}

	node, err := protocolnode.NewRoot(protocolnode.RootParams{
		K: params.Nopart, J: params.Party,
		Rbitlen: params.Statdist, Cert: params.Certainty,
		Sid: params.Sid, Role: firstNonEmpty(params.Name, "root"),
		Directory:   directory,
		Random:      src,
		SeedFile:    seedFile,
		TmpSeedFile: tmpSeedFile,
		Log:         log,
		Console:     console,
	})
	if err != nil {
		return nil, err
	}

	tr, err := transport.New(params.Bullboard, params.Party, params.Nopart, params.TransportParams)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vcrerr.ErrResource, err)
	}

	caps := board.Caps{
		MaxWaitMillis:     params.MaxWaitMillis,
		MaxByteLength:     params.MaxByteLength,
		MaxRecursionDepth: params.MaxRecursionDepth,
	}
	bb, err := board.NewRoot(tr, params.Party, params.Nopart, caps, reg, node.FullName())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vcrerr.ErrResource, err)
	}
	if err := node.AttachBoard(bb); err != nil {
		return nil, fmt.Errorf("%w: %v", vcrerr.ErrResource, err)
	}
	if err := bb.Start(log); err != nil {
		return nil, fmt.Errorf("%w: %v", vcrerr.ErrResource, err)
	}
	if err := bb.Synchronize(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", vcrerr.ErrResource, err)
	}

	s := &Supervisor{node: node, bb: bb, tr: tr}
	s.healthy.Store(true)
	return s, nil
}

// Node returns the root ProtocolNode.
func (s *Supervisor) Node() *protocolnode.Node { return s.node }

// Board returns the root BulletinBoard.
func (s *Supervisor) Board() *board.Board { return s.bb }

// Healthy reports whether the root node, board, and transport are all
// still live (supplemented feature, SPEC_FULL.md §C.3).
func (s *Supervisor) Healthy() bool {
	return s.healthy.Load() && s.bb.State() != board.Stopped
}

// Shutdown runs the two-round barrier and stops the transport, then
// finalizes the root node's temp-file registrar.
func (s *Supervisor) Shutdown(ctx context.Context, params shutdown.Params) error {
	s.healthy.Store(false)
	if err := shutdown.Execute(ctx, s.bb, s.node, params); err != nil {
		return err
	}
	return s.node.Close()
}

// Fail marks the supervisor unhealthy without running the shutdown
// barrier, used when a peer's fatal refusal makes a clean two-round
// handshake impossible (spec.md §6 exit code 3).
func (s *Supervisor) Fail() {
	s.healthy.Store(false)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// resolveRandomness parses the "randomness" descriptor of spec.md §4.7:
// "device:<path>" for a Device source, or "prg:<seed_file>:<tmp_seed_file>"
// for a Prg that NewRoot will reseed before use.
func resolveRandomness(descriptor string) (src random.Source, seedFile, tmpSeedFile string, err error) {
	parts := strings.SplitN(descriptor, ":", 3)
	switch parts[0] {
	case "device":
		if len(parts) != 2 || parts[1] == "" {
			return nil, "", "", fmt.Errorf("%w: randomness descriptor %q wants device:<path>", vcrerr.ErrConfig, descriptor)
		}
		return random.NewDevice(parts[1]), "", "", nil
	case "prg":
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			return nil, "", "", fmt.Errorf("%w: randomness descriptor %q wants prg:<seed_file>:<tmp_seed_file>", vcrerr.ErrConfig, descriptor)
		}
		return random.NewPrg(), parts[1], parts[2], nil
	default:
		return nil, "", "", fmt.Errorf("%w: unrecognized randomness descriptor %q", vcrerr.ErrConfig, descriptor)
	}
}

