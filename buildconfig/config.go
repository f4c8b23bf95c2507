// Package buildconfig generates the deterministic, per-build tables every
// other layer of the VM consumes: the shuffled opcode encoding, the
// register permutation, flag bit positions, FNV constants, native-ID
// shuffle, header magic, and the AEAD key-derivation root. Everything here
// is a pure function of a 32-byte BuildSeed, so two builds sharing a seed
// are byte-identical in every derived table.
package buildconfig

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/polyvm/anticheat-vm/opcode"
)

// ErrWeakSeed is returned by Generate when handed an all-zero seed: every
// downstream HMAC derivation would still produce *some* output, but a
// degenerate seed is almost certainly a caller mistake (an unset
// environment variable, a zeroed buffer) rather than an intentional key.
var ErrWeakSeed = errors.New("buildconfig: seed must not be all-zero")

const domSeed = "anticheat-vm-seed-v1"
const domBuildID = "anticheat-vm-build-id-v1"

// Options selects how the build seed is obtained and what metadata is
// baked into the resulting Config.
type Options struct {
	// BuildKey, if non-empty, makes the seed reproducible:
	// seed = HMAC(BuildKey, "anticheat-vm-seed-v1"). Otherwise a fresh
	// seed is drawn from the OS CSPRNG.
	BuildKey        string
	CustomerID      string
	ProtectionLevel ProtectionLevel
	BuildSequence   uint32
	// Timestamp is normally time.Now().Unix(); exposed for reproducible
	// tests.
	Timestamp uint64
}

// Config is everything derived from one BuildSeed: the tables the
// compiler and runtime both consume.
type Config struct {
	Seed            [32]byte
	BuildID         uint64
	CustomerID      string
	ProtectionLevel ProtectionLevel
	Flags           Flags
	BuildSequence   uint32
	Timestamp       uint64
	Watermark       [16]byte

	Opcodes  OpcodeTable
	Registers RegisterMap
	FlagBits FlagBits
	FNV      FnvConstants
	NativeIDs NativeIDMap
	Magic    [4]byte
	XorKey   byte
	YieldMask uint64
}

// Generate derives a complete Config from opts, validating every table it
// produces and aggregating every failure (rather than stopping at the
// first) with multierr, so a caller generating many per-customer artifacts
// in a loop sees every problem with a bad seed at once.
func Generate(opts Options) (*Config, error) {
	seed, err := resolveSeed(opts.BuildKey)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Seed:            seed,
		CustomerID:      opts.CustomerID,
		ProtectionLevel: opts.ProtectionLevel,
		BuildSequence:   opts.BuildSequence,
		Timestamp:       opts.Timestamp,
	}
	if cfg.Timestamp == 0 {
		cfg.Timestamp = uint64(time.Now().Unix())
	}
	if cfg.ProtectionLevel == "" {
		cfg.ProtectionLevel = ProtectionMedium
	}
	cfg.Flags = FlagsFor(cfg.ProtectionLevel)

	buildIDSum := hmacSHA256(seed[:], []byte(domBuildID))
	cfg.BuildID = beUint64(buildIDSum[:8])

	cfg.Opcodes = generateOpcodeTable(seed[:])
	cfg.Registers = generateRegisterMap(seed[:])
	cfg.FlagBits = generateFlagBits(seed[:])
	cfg.FNV = generateFnvConstants(seed[:])
	cfg.NativeIDs = generateNativeIDs(seed[:])
	cfg.Magic = generateMagicBytes(seed[:])
	cfg.XorKey = generateXorKey(seed[:])
	cfg.YieldMask = GenerateYieldMask(seed[:])
	cfg.Watermark = Watermark(cfg.CustomerID, seed[:], cfg.Timestamp)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveSeed(buildKey string) ([32]byte, error) {
	var seed [32]byte
	if buildKey != "" {
		sum := hmacSHA256([]byte(buildKey), []byte(domSeed))
		copy(seed[:], sum)
	} else if _, err := rand.Read(seed[:]); err != nil {
		return seed, err
	}
	return seed, checkSeedStrength(seed)
}

// checkSeedStrength rejects an all-zero seed with ErrWeakSeed.
func checkSeedStrength(seed [32]byte) error {
	for _, b := range seed {
		if b != 0 {
			return nil
		}
	}
	return ErrWeakSeed
}

func (c *Config) validate() error {
	var errs error

	for _, b := range opcode.All() {
		if _, ok := c.Opcodes.Encode[b]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("buildconfig: opcode table missing encoding for base 0x%02x", byte(b)))
		}
	}
	if c.Opcodes.Encode[opcode.Halt] != 0xFF {
		errs = multierr.Append(errs, errors.New("buildconfig: HALT must keep its fixed encoding"))
	}
	if c.Opcodes.Encode[opcode.HaltErr] != 0xFE {
		errs = multierr.Append(errs, errors.New("buildconfig: HALT_ERR must keep its fixed encoding"))
	}

	seen := make(map[byte]bool, NumRegisters)
	for _, p := range c.Registers.Map {
		if seen[p] {
			errs = multierr.Append(errs, errors.New("buildconfig: register map is not a permutation"))
			break
		}
		seen[p] = true
	}

	bits := []byte{c.FlagBits.Zero, c.FlagBits.Carry, c.FlagBits.Overflow, c.FlagBits.Sign}
	for i := 0; i < len(bits); i++ {
		for j := i + 1; j < len(bits); j++ {
			if bits[i] == bits[j] {
				errs = multierr.Append(errs, errors.New("buildconfig: flag bits must be distinct"))
			}
		}
	}

	if c.FNV.Prime64%2 == 0 || c.FNV.Prime32%2 == 0 {
		errs = multierr.Append(errs, errors.New("buildconfig: FNV primes must be odd"))
	}

	ids := []byte{
		c.NativeIDs.CheckRoot, c.NativeIDs.CheckEmulator, c.NativeIDs.CheckHooks,
		c.NativeIDs.CheckDebugger, c.NativeIDs.CheckTamper, c.NativeIDs.GetTimestamp,
		c.NativeIDs.HashFnv1a, c.NativeIDs.ReadMemory, c.NativeIDs.GetDeviceHash,
	}
	idSeen := make(map[byte]bool, len(ids))
	for _, id := range ids {
		if idSeen[id] {
			errs = multierr.Append(errs, errors.New("buildconfig: native IDs must be distinct"))
			break
		}
		idSeen[id] = true
	}

	return errs
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = (v << 8) | uint64(x)
	}
	return v
}
