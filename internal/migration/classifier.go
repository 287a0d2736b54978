package migration

import (
	"encoding/base64"
	"strings"
)

// MigrationProgram is the pump.fun migration program ID.
const MigrationProgram = "39azUYFWPz3VHgKCf3VChUwbpURdCHRxjWVowf5jUJjg"

// Log markers emitted by the migration program.
const (
	markerAnchorError     = "AnchorError thrown"
	markerGenericError    = "Error"
	markerMigrate         = "Program log: Instruction: Migrate"
	markerAlreadyMigrated = "Program log: Bonding curve already migrated"
	programDataPrefix     = "Program data: "
)

// Classification is the routing decision for one log bundle.
type Classification int

const (
	// Irrelevant means the logs carry no Migrate instruction.
	Irrelevant Classification = iota
	// FailedTransaction means an error marker appeared; failure dominates
	// every other marker.
	FailedTransaction
	// AlreadyMigrated means the curve had migrated before this transaction.
	AlreadyMigrated
	// Actionable means a fresh, successful migration worth decoding.
	Actionable
)

// String returns the classification name for logging.
func (c Classification) String() string {
	switch c {
	case FailedTransaction:
		return "FAILED_TRANSACTION"
	case AlreadyMigrated:
		return "ALREADY_MIGRATED"
	case Actionable:
		return "ACTIONABLE"
	default:
		return "IRRELEVANT"
	}
}

// Classify routes a transaction's log lines. Pure function: the same lines
// always produce the same classification.
func Classify(logs []string) Classification {
	hasMigrate := false
	hasAlreadyMigrated := false

	for _, line := range logs {
		if strings.Contains(line, markerAnchorError) || strings.Contains(line, markerGenericError) {
			return FailedTransaction
		}
		if strings.Contains(line, markerMigrate) {
			hasMigrate = true
		}
		if strings.Contains(line, markerAlreadyMigrated) {
			hasAlreadyMigrated = true
		}
	}

	if !hasMigrate {
		return Irrelevant
	}
	if hasAlreadyMigrated {
		return AlreadyMigrated
	}
	return Actionable
}

// ExtractProgramData finds the first "Program data: " line and decodes its
// base64 remainder. A missing or malformed line returns ok=false; the RPC
// log transport truncates long lines, so callers treat this as a skip,
// not an error.
func ExtractProgramData(logs []string) ([]byte, bool) {
	for _, line := range logs {
		if !strings.HasPrefix(line, programDataPrefix) {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(line, programDataPrefix))
		if err != nil {
			continue
		}
		return data, true
	}
	return nil, false
}
