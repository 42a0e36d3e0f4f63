package store

import "fmt"

// Tier represents the durability class assigned to a table.
//
// The replicated store decides what each tier means physically (which
// nodes hold copies, whether copies touch disk). The engine only declares
// the desired tier at table creation.
type Tier int

const (
	// TierMemory keeps the table in memory only. Contents do not survive
	// a store restart.
	TierMemory Tier = iota

	// TierDisk keeps the table in memory with a disk-backed copy.
	// This is the default for configuration tables.
	TierDisk

	// TierDiskOnly keeps the table on disk without a resident in-memory
	// copy. Suited to high-volume append logs read rarely.
	TierDiskOnly
)

// String returns the string representation of the tier.
func (t Tier) String() string {
	switch t {
	case TierMemory:
		return "memory"
	case TierDisk:
		return "disk"
	case TierDiskOnly:
		return "disk-only"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}

// ParseTier parses a tier name. An empty string maps to TierDisk.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "memory":
		return TierMemory, nil
	case "disk", "":
		return TierDisk, nil
	case "disk-only":
		return TierDiskOnly, nil
	default:
		return TierDisk, fmt.Errorf("unknown storage tier %q", s)
	}
}
