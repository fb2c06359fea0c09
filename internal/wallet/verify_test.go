package wallet

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

func signPersonal(t *testing.T, message string) (address, signature string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := crypto.Keccak256([]byte(prefixed))
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	// wallets return V as 27/28
	sig[crypto.RecoveryIDOffset] += 27
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), hexutil.Encode(sig)
}

func TestVerifyPersonalSign(t *testing.T) {
	msg := ChallengeMessage("0x1111111111111111111111111111111111111111", "abc123")
	addr, sig := signPersonal(t, msg)

	if err := VerifyPersonalSign(addr, msg, sig); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
}

func TestVerifyPersonalSignWrongAddress(t *testing.T) {
	msg := ChallengeMessage("0x1111111111111111111111111111111111111111", "abc123")
	_, sig := signPersonal(t, msg)

	err := VerifyPersonalSign("0x2222222222222222222222222222222222222222", msg, sig)
	if err == nil {
		t.Fatal("signature for another key accepted")
	}
}

func TestVerifyPersonalSignTamperedMessage(t *testing.T) {
	msg := ChallengeMessage("0x1111111111111111111111111111111111111111", "abc123")
	addr, sig := signPersonal(t, msg)

	err := VerifyPersonalSign(addr, msg+" extra", sig)
	if err == nil {
		t.Fatal("tampered message accepted")
	}
}

func TestVerifyPersonalSignBadSignature(t *testing.T) {
	if err := VerifyPersonalSign("0x1111111111111111111111111111111111111111", "hello", "0xdead"); err == nil {
		t.Fatal("malformed signature accepted")
	}
}
