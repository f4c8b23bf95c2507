package buildconfig

import (
	"os"
	"strconv"
)

// EnvOptions mirrors the build-time environment inputs spec.md's external
// interfaces section names, read the way a CLI flag layer would fall back
// to the environment -- cmd/vmrun's flags take precedence over these when
// both are present.
type EnvOptions struct {
	BuildKey        string
	CustomerID      string
	ProtectionLevel ProtectionLevel
	BuildSequence   uint32
}

// EnvOptionsFromEnvironment reads ANTICHEAT_VM_BUILD_KEY,
// ANTICHEAT_VM_CUSTOMER_ID, ANTICHEAT_VM_PROTECTION_LEVEL, and
// ANTICHEAT_VM_BUILD_SEQUENCE from the process environment.
func EnvOptionsFromEnvironment() EnvOptions {
	opts := EnvOptions{
		CustomerID:      os.Getenv("ANTICHEAT_VM_CUSTOMER_ID"),
		ProtectionLevel: ProtectionLevel(os.Getenv("ANTICHEAT_VM_PROTECTION_LEVEL")),
		BuildKey:        os.Getenv("ANTICHEAT_VM_BUILD_KEY"),
	}
	if opts.CustomerID == "" {
		opts.CustomerID = "dev-customer"
	}
	if opts.ProtectionLevel == "" {
		opts.ProtectionLevel = ProtectionMedium
	}
	if seq, err := strconv.ParseUint(os.Getenv("ANTICHEAT_VM_BUILD_SEQUENCE"), 10, 32); err == nil {
		opts.BuildSequence = uint32(seq)
	}
	return opts
}
