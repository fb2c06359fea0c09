// Package wallet talks to the chain: personal-sign verification, challenge
// nonces and the ERC-20 reward token.
package wallet

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ChallengeMessage is the exact text the client signs with personal_sign.
func ChallengeMessage(address, nonce string) string {
	return fmt.Sprintf("Verify your identity for TASK-fi: %s\nNonce: %s", address, nonce)
}

// VerifyPersonalSign recovers the signer of an EIP-191 personal_sign message
// and checks it against the claimed address.
func VerifyPersonalSign(address, message, signature string) error {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	// metamask returns V as 27/28, go-ethereum wants 0/1
	if sig[crypto.RecoveryIDOffset] == 27 || sig[crypto.RecoveryIDOffset] == 28 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := crypto.Keccak256([]byte(prefixed))

	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return fmt.Errorf("recover public key: %w", err)
	}
	recovered := crypto.PubkeyToAddress(*pub)
	if !strings.EqualFold(recovered.Hex(), address) {
		return fmt.Errorf("signer %s does not match %s", recovered.Hex(), address)
	}
	return nil
}

// PersonalSignVerifier adapts VerifyPersonalSign to the verifier interface
// the ledger takes.
type PersonalSignVerifier struct{}

func (PersonalSignVerifier) Verify(address, message, signature string) error {
	return VerifyPersonalSign(address, message, signature)
}

// MustAddress parses a checksummed or lowercase hex address.
func MustAddress(s string) common.Address {
	return common.HexToAddress(s)
}
