package confirmation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCommitment is returned when a commitment level is unknown or unset.
var ErrInvalidCommitment = errors.New("invalid commitment level")

// Commitment is the durability guarantee a network declares for a transaction's
// inclusion. Levels are ordered: a transaction observed at a level has also
// satisfied every level below it.
type Commitment uint8

const (
	CommitmentProcessed Commitment = iota + 1 // optimistically processed by the connected node
	CommitmentConfirmed                       // voted on by a supermajority of the cluster
	CommitmentFinalized                       // rooted, irreversible
)

var commitmentNames = map[Commitment]string{
	CommitmentProcessed: "processed",
	CommitmentConfirmed: "confirmed",
	CommitmentFinalized: "finalized",
}

// ParseCommitment converts a commitment name ("processed", "confirmed",
// "finalized") into a Commitment. Matching is case-insensitive.
func ParseCommitment(s string) (Commitment, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for c, n := range commitmentNames {
		if n == name {
			return c, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidCommitment, s)
}

// Valid reports whether c is one of the known commitment levels.
func (c Commitment) Valid() bool {
	_, ok := commitmentNames[c]
	return ok
}

// Satisfies reports whether a transaction observed at c has reached target.
func (c Commitment) Satisfies(target Commitment) bool {
	return c.Valid() && c >= target
}

// String returns the lowercase name of c. The zero value, meaning no
// commitment observed yet, renders as "".
func (c Commitment) String() string {
	if c == 0 {
		return ""
	}

	if n, ok := commitmentNames[c]; ok {
		return n
	}

	return fmt.Sprintf("commitment(%d)", uint8(c))
}

// MarshalText encodes c as its lowercase name. The zero value encodes as "".
func (c Commitment) MarshalText() ([]byte, error) {
	if c == 0 {
		return []byte{}, nil
	}

	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCommitment, uint8(c))
	}

	return []byte(c.String()), nil
}

// UnmarshalText decodes a commitment name. An empty input yields the zero value.
func (c *Commitment) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*c = 0
		return nil
	}

	parsed, err := ParseCommitment(string(data))
	if err != nil {
		return err
	}

	*c = parsed
	return nil
}
