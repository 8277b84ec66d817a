package concrnt

import (
	"encoding/hex"

	"github.com/cosmos/cosmos-sdk/codec/address"
	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"gitlab.com/yawning/secp256k1-voi/secec"
	"golang.org/x/crypto/sha3"
)

func GetHash(bytes []byte) []byte {
	hash := sha3.NewLegacyKeccak256()
	hash.Write(bytes)
	return hash.Sum(nil)
}

// SignBytes signs keccak256(bytes) with a hex encoded secp256k1 key.
// The signature is in the 65 byte recoverable form.
func SignBytes(bytes []byte, privatekey string) ([]byte, error) {
	key, err := crypto.HexToECDSA(privatekey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert private key")
	}

	signature, err := crypto.Sign(GetHash(bytes), key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign message")
	}

	return signature, nil
}

// VerifySignature recovers the signer of message and compares its address.
func VerifySignature(message []byte, signature []byte, address string) error {
	if len(address) < 3 {
		return errors.New("invalid address: " + address)
	}

	recoveredPub, err := crypto.Ecrecover(GetHash(message), signature)
	if err != nil {
		return errors.Wrap(err, "failed to recover public key")
	}

	seckey, err := secec.NewPublicKey(recoveredPub)
	if err != nil {
		return errors.Wrap(err, "failed to parse recovered public key")
	}

	hrp := address[:3]
	sigaddr, err := PubkeyBytesToAddr(seckey.CompressedBytes(), hrp)
	if err != nil {
		return errors.Wrap(err, "failed to convert public key to address")
	}

	if sigaddr != address {
		return errors.New("signature is not matched with address. expected: " + address + ", actual: " + sigaddr)
	}

	return nil
}

func PubkeyBytesToAddr(pubkeyBytes []byte, hrp string) (string, error) {
	pubkey := secp256k1.PubKey{
		Key: pubkeyBytes,
	}

	account := sdk.AccAddress(pubkey.Address())
	cdc := address.NewBech32Codec(hrp)
	addr, err := cdc.BytesToString(account)
	if err != nil {
		return "", errors.Wrap(err, "failed to convert address")
	}

	return addr, nil
}

func PrivKeyToAddr(privKeyHex string, hrp string) (string, error) {
	privKeyBytes, err := hex.DecodeString(privKeyHex)
	if err != nil {
		return "", errors.Wrap(err, "failed to decode private key")
	}

	privKey := secp256k1.PrivKey{
		Key: privKeyBytes,
	}

	return PubkeyBytesToAddr(privKey.PubKey().Bytes(), hrp)
}
