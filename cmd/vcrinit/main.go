// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// vcrinit is the "-rndinit" external one-time command of spec.md §4.4:
// it turns a user-supplied hex seed file into the binary seed_file the
// PRG reseed path expects, then deletes the user's hex file.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verificatum/vcr/fsutil"
	"github.com/verificatum/vcr/random"
)

var rootCmd = &cobra.Command{
	Use:   "vcrinit",
	Short: "Initialize a PRG seed file from a user-supplied hex seed",
	Long: `vcrinit reads a hex-encoded seed from --hex-seed-file, decodes it, and
writes the binary result to --seed-file for random.Prg.ReseedFrom to consume.
The hex file is deleted on success so the raw seed material exists exactly
once, in exactly one binary file.`,
	RunE: runInit,
}

func init() {
	rootCmd.Flags().String("hex-seed-file", "", "path to a hex-encoded seed file (required)")
	rootCmd.Flags().String("seed-file", "", "destination path for the binary seed file (required)")
	_ = rootCmd.MarkFlagRequired("hex-seed-file")
	_ = rootCmd.MarkFlagRequired("seed-file")
}

func runInit(cmd *cobra.Command, args []string) error {
	hexSeedFile, err := cmd.Flags().GetString("hex-seed-file")
	if err != nil {
		return err
	}
	seedFile, err := cmd.Flags().GetString("seed-file")
	if err != nil {
		return err
	}

	raw, err := fsutil.ReadFile(hexSeedFile)
	if err != nil {
		return fmt.Errorf("read hex seed file: %w", err)
	}

	decoded, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return fmt.Errorf("decode hex seed file %s: %w", hexSeedFile, err)
	}
	if len(decoded) < random.MinSeedLen {
		return fmt.Errorf("hex seed file %s decodes to %d bytes, want at least %d", hexSeedFile, len(decoded), random.MinSeedLen)
	}

	if err := fsutil.WriteFileAtomic(seedFile, decoded); err != nil {
		return fmt.Errorf("write seed file: %w", err)
	}
	if err := os.Remove(hexSeedFile); err != nil {
		return fmt.Errorf("remove hex seed file %s: %w", hexSeedFile, err)
	}

	fmt.Printf("wrote %d-byte seed to %s\n", len(decoded), seedFile)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
