package buildconfig

// Flags are the BytecodeHeader's flag bits, selected by ProtectionLevel.
type Flags uint16

const (
	FlagEncrypted       Flags = 1 << 0
	FlagHasIntegrity     Flags = 1 << 1
	FlagHasTimingChecks Flags = 1 << 2
	FlagParanoid        Flags = 1 << 3
)

// ProtectionLevel is the build-time knob named in spec.md's external
// interfaces: "Protection level in {debug, low, medium, high, paranoid}
// selects container flag set", without the distillation giving the table.
type ProtectionLevel string

const (
	ProtectionDebug    ProtectionLevel = "debug"
	ProtectionLow      ProtectionLevel = "low"
	ProtectionMedium   ProtectionLevel = "medium"
	ProtectionHigh     ProtectionLevel = "high"
	ProtectionParanoid ProtectionLevel = "paranoid"
)

// FlagsFor pins the protection-level to flag-set table. High gets its own
// HasTimingChecks bit on top of medium's integrity checking -- distinct
// from paranoid, which additionally sets Paranoid and forces the SMC
// executor instead of the plain dispatcher.
func FlagsFor(level ProtectionLevel) Flags {
	switch level {
	case ProtectionDebug:
		return 0
	case ProtectionLow:
		return FlagEncrypted
	case ProtectionMedium:
		return FlagEncrypted | FlagHasIntegrity
	case ProtectionHigh:
		return FlagEncrypted | FlagHasIntegrity | FlagHasTimingChecks
	case ProtectionParanoid:
		return FlagEncrypted | FlagHasIntegrity | FlagHasTimingChecks | FlagParanoid
	default:
		return FlagEncrypted | FlagHasIntegrity
	}
}

// RequiresSMC reports whether this flag set mandates the sliding-window
// SMC executor rather than the plain dispatcher.
func (f Flags) RequiresSMC() bool { return f&FlagParanoid != 0 }
func (f Flags) Encrypted() bool    { return f&FlagEncrypted != 0 }
func (f Flags) HasIntegrity() bool { return f&FlagHasIntegrity != 0 }
func (f Flags) HasTimingChecks() bool { return f&FlagHasTimingChecks != 0 }
