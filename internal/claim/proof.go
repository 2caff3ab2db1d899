package claim

import (
	"fmt"
	"strings"

	"github.com/tedkaczynski-the-bot/agent-ponzi/internal/models"
)

// ProofPolicy decides whether fetched post text proves ownership.
// A process runs with exactly one policy.
type ProofPolicy string

const (
	// PolicyCodeMatch requires the exact verification code in the post.
	PolicyCodeMatch ProofPolicy = "code"

	// PolicyAddressPrefix requires the first 10 characters of the claimed
	// address ("0x" + 8 hex digits). Anyone can post a prefix, so this only
	// proves the poster saw the address.
	PolicyAddressPrefix ProofPolicy = "address_prefix"

	addressPrefixLength = 10
)

// ParseProofPolicy validates a configured policy name. Empty means PolicyCodeMatch.
func ParseProofPolicy(s string) (ProofPolicy, error) {
	switch p := ProofPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyCodeMatch, nil
	case PolicyCodeMatch, PolicyAddressPrefix:
		return p, nil
	default:
		return "", fmt.Errorf("unknown proof policy %q", s)
	}
}

// Satisfied reports whether text proves the claim of agent to the canonical address.
func (p ProofPolicy) Satisfied(text string, agent *models.Agent, address string) bool {
	switch p {
	case PolicyAddressPrefix:
		return strings.Contains(strings.ToLower(text), strings.ToLower(address)[:addressPrefixLength])
	default:
		return strings.Contains(text, agent.VerificationCode)
	}
}

// missingProofMessage tells the caller what the post has to contain.
func (p ProofPolicy) missingProofMessage(agent *models.Agent, address string) string {
	if p == PolicyAddressPrefix {
		return "post must contain your address prefix: " + address[:addressPrefixLength]
	}
	return "post must contain verification code: " + agent.VerificationCode
}
