// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// vcrsupervisor demonstrates the Supervisor boundary of spec.md §4.7: it
// resolves a config.Parameters from CLI flags, builds the root
// ProtocolNode/BulletinBoard/Transport, runs until interrupted, then
// shuts down through the two-round barrier. With --local it instead
// spins up nopart in-process parties over the memory transport and
// fans their synchronization out with a bounded worker pool, so the
// whole stack can be exercised without a real network.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/verificatum/vcr/config"
	"github.com/verificatum/vcr/shutdown"
	"github.com/verificatum/vcr/supervisor"
	_ "github.com/verificatum/vcr/transport/http"
	_ "github.com/verificatum/vcr/transport/memory"
)

var rootCmd = &cobra.Command{
	Use:   "vcrsupervisor",
	Short: "Run a VCR Supervisor: root ProtocolNode + BulletinBoard + Transport",
	RunE:  runSupervisor,
}

func init() {
	flags := rootCmd.Flags()
	flags.String("sid", "", "session identifier (required unless --local)")
	flags.Int("party", 0, "this party's 1-indexed position (required unless --local)")
	flags.Int("nopart", 0, "party count (required)")
	flags.String("directory", "", "working directory root")
	flags.String("bullboard", "", "transport class identifier (http, memory)")
	flags.StringToString("transport", nil, "transport-specific subkeys, e.g. peer.1=http://host:port")
	flags.Bool("local", false, "run nopart in-process parties over the memory transport instead of one networked party")
	_ = rootCmd.MarkFlagRequired("nopart")
}

func runSupervisor(cmd *cobra.Command, args []string) error {
	local, _ := cmd.Flags().GetBool("local")
	nopart, _ := cmd.Flags().GetInt("nopart")

	if local {
		return runLocal(cmd.Context(), nopart)
	}
	return runNetworked(cmd)
}

func runNetworked(cmd *cobra.Command) error {
	flags := cmd.Flags()
	sid, _ := flags.GetString("sid")
	party, _ := flags.GetInt("party")
	nopart, _ := flags.GetInt("nopart")
	directory, _ := flags.GetString("directory")
	bullboard, _ := flags.GetString("bullboard")
	transportParams, _ := flags.GetStringToString("transport")

	raw := map[string]string{
		"sid":    sid,
		"party":  strconv.Itoa(party),
		"nopart": strconv.Itoa(nopart),
	}
	if directory != "" {
		raw["directory"] = directory
	}
	if bullboard != "" {
		raw["bullboard"] = bullboard
	}
	for k, v := range transportParams {
		raw[k] = v
	}

	params, err := config.FromMap(raw)
	if err != nil {
		os.Exit(supervisor.ExitInvalidArgs)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := supervisor.New(ctx, params, nil, nil, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "supervisor startup failed: %v\n", err)
		os.Exit(supervisor.ExitIOOrNetwork)
	}

	fmt.Printf("party %d/%d synchronized as %s\n", params.Party, params.Nopart, s.Node().FullName())
	<-ctx.Done()

	if err := s.Shutdown(context.Background(), shutdown.Params{}); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown failed: %v\n", err)
		os.Exit(supervisor.ExitFatalRefusal)
	}
	return nil
}

// runLocal builds nopart Supervisors sharing one memory network and
// synchronizes them concurrently, bounding the fan-out with
// errgroup.SetLimit the way the default HTTP transport bounds its
// outbound dial pool.
func runLocal(ctx context.Context, nopart int) error {
	if nopart < 1 {
		return fmt.Errorf("--local requires --nopart >= 1")
	}
	network := "local"

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nopart)
	supervisors := make([]*supervisor.Supervisor, nopart)
	for i := 0; i < nopart; i++ {
		i := i
		g.Go(func() error {
			party := i + 1
			dir, err := os.MkdirTemp("", fmt.Sprintf("vcr-local-party%d-", party))
			if err != nil {
				return err
			}
			params, err := config.FromMap(map[string]string{
				"sid":       "local",
				"party":     strconv.Itoa(party),
				"nopart":    strconv.Itoa(nopart),
				"directory": dir,
				"bullboard": "memory",
				"network":   network,
			})
			if err != nil {
				return err
			}
			s, err := supervisor.New(gctx, params, nil, nil, nil)
			if err != nil {
				return err
			}
			supervisors[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, s := range supervisors {
		fmt.Printf("party %d/%d synchronized as %s\n", i+1, nopart, s.Node().FullName())
	}

	shutdownGroup, sctx := errgroup.WithContext(ctx)
	shutdownGroup.SetLimit(nopart)
	for _, s := range supervisors {
		s := s
		shutdownGroup.Go(func() error {
			return s.Shutdown(sctx, shutdown.Params{QuiescenceMillis: 10})
		})
	}
	return shutdownGroup.Wait()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
