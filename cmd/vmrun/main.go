// Command vmrun is a debugging entry point for the virtual machine: it
// assembles a small mnemonic program (or loads an already-built
// container), authenticates and runs it, and prints the resulting
// result/output. It is not a product CLI -- there is no installer, no
// persisted build artifact registry -- just enough to drive the VM by
// hand while developing or triaging a seed.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/polyvm/anticheat-vm/buildconfig"
	"github.com/polyvm/anticheat-vm/container"
	"github.com/polyvm/anticheat-vm/native"
	"github.com/polyvm/anticheat-vm/smc"
	"github.com/polyvm/anticheat-vm/vm"
)

func main() {
	var (
		asmFile    = flag.String("asm", "", "Path to a mnemonic assembly source file")
		payload    = flag.String("payload", "", "Path to an already-built container file")
		out        = flag.String("out", "", "Write the assembled container here instead of running it")
		buildKey   = flag.String("build-key", "", "Build key (overrides ANTICHEAT_VM_BUILD_KEY); reproducible per-key seed")
		customer   = flag.String("customer", "", "Customer ID (overrides ANTICHEAT_VM_CUSTOMER_ID); non-empty embeds a watermark")
		protection = flag.String("protection", "", "Protection level: debug|low|medium|high|paranoid (overrides ANTICHEAT_VM_PROTECTION_LEVEL)")
		inputStr   = flag.String("input", "", "Input bytes, as a raw string")
		smcWindow  = flag.Int("smc-window", 0, "Force SMC sliding-window execution with this window size (0: follow protection level)")
		interact   = flag.Bool("i", false, "Interactive step-through TUI")
		list       = flag.Bool("list", false, "Print the resolved opcode table and exit")
		verbose    = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *verbose {
		l, _ := zap.NewDevelopment()
		vm.SetLogger(l)
	}

	opts := buildconfig.EnvOptionsFromEnvironment()
	if *buildKey != "" {
		opts.BuildKey = *buildKey
	}
	if *customer != "" {
		opts.CustomerID = *customer
	}
	if *protection != "" {
		opts.ProtectionLevel = buildconfig.ProtectionLevel(*protection)
	}

	cfg, err := buildconfig.Generate(buildconfig.Options{
		BuildKey:        opts.BuildKey,
		CustomerID:      opts.CustomerID,
		ProtectionLevel: opts.ProtectionLevel,
		BuildSequence:   opts.BuildSequence,
		Timestamp:       uint64(mustTimestamp()),
	})
	if err != nil {
		fail("build config: %v", err)
	}

	if *list {
		printOpcodeTable(cfg)
		return
	}

	var payloadBytes []byte
	switch {
	case *asmFile != "":
		src, err := os.ReadFile(*asmFile)
		if err != nil {
			fail("read asm: %v", err)
		}
		plaintext, err := assemble(string(src), &cfg.Opcodes, nil)
		if err != nil {
			fail("assemble: %v", err)
		}
		payloadBytes, err = container.Emit(cfg, plaintext)
		if err != nil {
			fail("emit container: %v", err)
		}
		if *out != "" {
			if err := os.WriteFile(*out, payloadBytes, 0o644); err != nil {
				fail("write container: %v", err)
			}
			fmt.Printf("Wrote %d bytes to %s (build-id %016x)\n", len(payloadBytes), *out, cfg.BuildID)
			return
		}

	case *payload != "":
		payloadBytes, err = os.ReadFile(*payload)
		if err != nil {
			fail("read payload: %v", err)
		}

	default:
		fmt.Fprintln(os.Stderr, "Usage: vmrun -asm <file.asm> [-out <file>] [-build-key K] [-protection level]")
		fmt.Fprintln(os.Stderr, "       vmrun -payload <file> -build-key K [-input str] [-i]")
		fmt.Fprintln(os.Stderr, "       vmrun -list")
		os.Exit(1)
	}

	reg := native.NewRegistry()
	if err := native.RegisterStandard(reg, cfg.NativeIDs, cfg.FNV, uint64(time.Now().UnixNano())); err != nil {
		fail("register natives: %v", err)
	}

	if *interact {
		runInteractive(cfg, payloadBytes, []byte(*inputStr), reg)
		return
	}

	var result vm.Result
	if *smcWindow > 0 || cfg.Flags.RequiresSMC() {
		c, err := container.Parse(payloadBytes, cfg)
		if err != nil {
			fail("parse container: %v", err)
		}
		window := *smcWindow
		if window <= 0 {
			window = smc.DefaultWindowSize
		}
		smcCfg := smc.Config{Key: smc.KeyFromSeed(cfg.BuildID), WindowSize: window}
		smc.EncryptBytecode(c.Plaintext, smcCfg)
		result = smc.Execute(c.Plaintext, []byte(*inputStr), smcCfg, &cfg.Opcodes, cfg.FlagBits, cfg.FNV, reg)
	} else {
		result = vm.Execute(cfg, payloadBytes, []byte(*inputStr), reg)
	}

	printResult(result)
	if result.Err != nil {
		os.Exit(1)
	}
}

func printResult(r vm.Result) {
	fmt.Printf("Instructions: %d\n", r.InstructionCount)
	if r.Err != nil {
		fmt.Printf("Error: %v\n", r.Err)
		return
	}
	fmt.Printf("Result: %d (0x%x)\n", r.ReturnValue, r.ReturnValue)
	if len(r.Output) > 0 {
		fmt.Printf("Output (%d bytes): %s\n", len(r.Output), hex.EncodeToString(r.Output))
	}
}

func printOpcodeTable(cfg *buildconfig.Config) {
	fmt.Printf("Build ID: %016x  Magic: % x  Flags: %04x\n\n", cfg.BuildID, cfg.Magic, cfg.Flags)
	for base, enc := range cfg.Opcodes.Encode {
		fmt.Printf("  0x%02x  <- base 0x%02x", enc, byte(base))
		if aliases := cfg.Opcodes.Aliases[base]; len(aliases) > 0 {
			fmt.Printf("  (aliases: % x)", aliases)
		}
		fmt.Println()
	}
}

func mustTimestamp() int64 {
	return time.Now().Unix()
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
