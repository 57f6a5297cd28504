package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// submissionPrefix namespaces the root-submission digest so a signature over
// it can never be replayed as any other message kind. The season distributor
// contract hashes the same prefix before recovering the signer.
var submissionPrefix = []byte("\x19RaffleRootSubmission\n")

// Signer holds the operator's secp256k1 key and signs the digest that
// authorizes publishing a season's Merkle root through the paymaster relay.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key (with
// or without 0x prefix).
func NewSigner(privateKeyHex string) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}

	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// Address returns the operator address derived from the signer's key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignRootSubmission signs the digest
//
//	keccak256("\x19RaffleRootSubmission\n" || seasonID || root)
//
// and returns the 65-byte r||s||v signature with v in {27, 28}.
func (s *Signer) SignRootSubmission(seasonID string, root common.Hash) ([]byte, error) {
	digest := SubmissionDigest(seasonID, root)

	sig, err := ethcrypto.Sign(digest[:], s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: signing root for season %s: %w", seasonID, err)
	}

	// go-ethereum returns v in {0,1}; the contract expects v in {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

// SubmissionDigest computes the 32-byte digest signed by
// SignRootSubmission. Exposed so tests and the verify job can recover and
// check the signer address.
func SubmissionDigest(seasonID string, root common.Hash) common.Hash {
	return common.BytesToHash(ethcrypto.Keccak256(submissionPrefix, []byte(seasonID), root.Bytes()))
}

// RecoverSubmitter recovers the address that signed a root submission.
func RecoverSubmitter(seasonID string, root common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("crypto/signer: expected 65-byte signature, got %d", len(sig))
	}

	// Undo the v normalization before handing the signature to go-ethereum.
	normalized := make([]byte, 65)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}

	digest := SubmissionDigest(seasonID, root)
	pub, err := ethcrypto.SigToPub(digest[:], normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto/signer: recover submitter: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
