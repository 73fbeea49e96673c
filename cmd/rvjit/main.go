// Command rvjit is a thin demonstration harness around pkg/asm: it builds
// a small counted loop, two-pass resolves it against a chosen target
// profile, prints the resulting hex/mnemonic listing, and can optionally
// run the bytes through internal/rvsim to show the final value of a0.
// It is not a general assembler front end — see SPEC_FULL.md.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bassosimone/rvjit/internal/config"
	"github.com/bassosimone/rvjit/internal/rvsim"
	"github.com/bassosimone/rvjit/pkg/asm"
	"github.com/bassosimone/rvjit/pkg/reg"
)

func main() {
	var profile string
	var run bool
	var count int32

	rootCmd := &cobra.Command{
		Use:   "rvjit",
		Short: "rvjit — a RISC-V RV32GC in-process machine-code emitter demo",
	}

	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Assemble a small counted loop and print its listing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if profile != "" {
				cfg.Target.Profile = profile
			}
			target, err := cfg.ProfileISA()
			if err != nil {
				return err
			}

			buf := asm.NewCodeBuffer(nil, cfg.Buffer.Size)
			buf.SetListing(os.Stdout)
			e := asm.NewEmitter(buf, target)

			if err := buildCountedLoop(e, count); err != nil {
				return fmt.Errorf("rvjit: failed to build demo program: %w", err)
			}
			code, err := e.Generate()
			if err != nil {
				return fmt.Errorf("rvjit: generation failed: %w", err)
			}
			fmt.Printf("\n%d bytes emitted for profile %s\n", len(code), cfg.Target.Profile)

			if run {
				vm := rvsim.New(code, len(code)+4096)
				// The program ends in ret: point ra just past the code and
				// step until the PC lands there.
				end := uint32(len(code))
				vm.X[1] = end
				for steps := 0; vm.PC != end; steps++ {
					if steps == 10_000 {
						return fmt.Errorf("rvjit: simulation did not return within %d steps", steps)
					}
					if err := vm.Step(); err != nil {
						return fmt.Errorf("rvjit: simulation aborted: %w", err)
					}
				}
				fmt.Printf("a0 = %d (x%d)\n", int32(vm.X[10]), vm.X[10])
			}
			return nil
		},
	}
	demoCmd.Flags().StringVar(&profile, "profile", "", "target ISA profile (overrides config)")
	demoCmd.Flags().BoolVar(&run, "run", false, "execute the emitted code against internal/rvsim")
	demoCmd.Flags().Int32Var(&count, "count", 5, "loop trip count")

	rootCmd.AddCommand(demoCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildCountedLoop assembles a decrementing loop summing 1..count into a0,
// shaped after the BrainFuck-interpreter inner loop this core's §8 test
// scenarios are seeded from: a forward conditional branch out of the loop
// and a backward unconditional branch closing it. Under C the backward j
// becomes c.j; the beqz on t1 stays a 32-bit beq, since t1 has no
// compressed register alias.
func buildCountedLoop(e *asm.Emitter, count int32) error {
	if err := e.Li(reg.A0, 0); err != nil { // accumulator
		return err
	}
	if err := e.Li(reg.T1, count); err != nil { // remaining trip count
		return err
	}
	if err := e.L("loop"); err != nil {
		return err
	}
	if err := e.Beqz(reg.T1, "end"); err != nil {
		return err
	}
	if err := e.Add(reg.A0, reg.A0, reg.T1); err != nil {
		return err
	}
	if err := e.Addi(reg.T1, reg.T1, -1); err != nil {
		return err
	}
	if err := e.J("loop"); err != nil {
		return err
	}
	if err := e.L("end"); err != nil {
		return err
	}
	return e.Ret()
}
