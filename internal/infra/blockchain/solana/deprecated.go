package solana

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrDeprecatedMethod is returned when a call targets a removed RPC method.
var ErrDeprecatedMethod = errors.New("deprecated rpc method")

// DeprecatedMethod describes an RPC method that nodes no longer serve.
type DeprecatedMethod struct {
	Method      string `json:"method"`
	Replacement string `json:"replacement,omitempty"` // empty when only a client side replacement exists
	Note        string `json:"note"`
}

var deprecatedMethods = map[string]DeprecatedMethod{
	"getConfirmedBlock": {
		Method:      "getConfirmedBlock",
		Replacement: "getBlock",
		Note:        "pass commitment and maxSupportedTransactionVersion in the config",
	},
	"getConfirmedBlocks": {
		Method:      "getConfirmedBlocks",
		Replacement: "getBlocks",
		Note:        "set commitment to confirmed",
	},
	"getConfirmedBlocksWithLimit": {
		Method:      "getConfirmedBlocksWithLimit",
		Replacement: "getBlocksWithLimit",
		Note:        "set commitment to confirmed",
	},
	"getConfirmedTransaction": {
		Method:      "getConfirmedTransaction",
		Replacement: "getTransaction",
		Note:        "set maxSupportedTransactionVersion to receive versioned transactions",
	},
	"getConfirmedSignaturesForAddress2": {
		Method:      "getConfirmedSignaturesForAddress2",
		Replacement: "getSignaturesForAddress",
		Note:        "before, until and limit keep their meaning",
	},
	"getRecentBlockhash": {
		Method:      "getRecentBlockhash",
		Replacement: "getLatestBlockhash",
		Note:        "the result carries lastValidBlockHeight instead of a fee calculator",
	},
	"getFees": {
		Method:      "getFees",
		Replacement: "getFeeForMessage",
		Note:        "fees are computed per compiled message",
	},
	"getFeeCalculatorForBlockhash": {
		Method:      "getFeeCalculatorForBlockhash",
		Replacement: "getFeeForMessage",
		Note:        "compile the transaction message, legacy or v0, and ask for its fee",
	},
	"getFeeRateGovernor": {
		Method: "getFeeRateGovernor",
		Note:   "removed without replacement",
	},
	"getSignatureStatus": {
		Method:      "getSignatureStatus",
		Replacement: "getSignatureStatuses",
		Note:        "pass a list of signatures and set searchTransactionHistory for older transactions",
	},
	"getSnapshotSlot": {
		Method:      "getSnapshotSlot",
		Replacement: "getHighestSnapshotSlot",
		Note:        "returns both full and incremental snapshot slots",
	},
	"getStakeActivation": {
		Method: "getStakeActivation",
		Note:   "compute activation client side from the stake and stake history accounts",
	},
}

// LookupDeprecated returns the entry for method, if it is deprecated.
func LookupDeprecated(method string) (DeprecatedMethod, bool) {
	m, ok := deprecatedMethods[method]
	return m, ok
}

// DeprecatedMethods returns every known deprecated method sorted by name.
func DeprecatedMethods() []DeprecatedMethod {
	names := slices.Sorted(maps.Keys(deprecatedMethods))

	out := make([]DeprecatedMethod, len(names))
	for i, name := range names {
		out[i] = deprecatedMethods[name]
	}
	return out
}

// CheckMethod returns ErrDeprecatedMethod, naming the replacement, when
// method should no longer be called.
func CheckMethod(method string) error {
	m, ok := deprecatedMethods[method]
	if !ok {
		return nil
	}

	if m.Replacement == "" {
		return fmt.Errorf("%w: %s (%s)", ErrDeprecatedMethod, method, m.Note)
	}
	return fmt.Errorf("%w: %s, use %s", ErrDeprecatedMethod, method, m.Replacement)
}
