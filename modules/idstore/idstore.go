// Package idstore maps WebAuthn-style credential ids and public keys to
// recall phrases and addresses (supplemented feature #3), letting a client
// that cannot remember an address look it up by a human-typable phrase.
//
// Grounded on `many-ledger/src/storage/idstore.rs` and
// `many-ledger/src/module/idstore.rs` (original_source) for the dual-keyed
// storage layout (recall phrase -> record, address -> record) and the
// store/get validation rules. The original derives recall phrases with a
// Rust-only `bip39_dict` crate and a const-generic word count that grows
// with a monotonic seed (2 words up to 2^16, 3 up to 2^24, 4 up to 2^32, 5
// beyond); that scheme has no Go equivalent in this pack. Since the
// teacher (core/wallet.go) already depends on and directly calls
// github.com/tyler-smith/go-bip39, recall phrases here are standard BIP-39
// 12-word mnemonics instead, derived deterministically from the same
// monotonic seed counter via sha256 so that replicas replaying the same
// sequence of idstore.store calls converge on the same phrases.
package idstore

import (
	"crypto/sha256"
	"encoding/binary"

	bip39 "github.com/tyler-smith/go-bip39"

	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/manyerr"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/merkle"
)

// AttributeID identifies the idstore module.
const AttributeID uint32 = 22

const (
	errCredentialIDTooShort    = 1
	errCredentialIDTooLong     = 2
	errRecallPhraseFailed      = 3
	errEntryNotFound           = 4
	errAddressMustBePublicKey  = 5
	errSenderCannotBeAnonymous = 6
)

func errCredentialIDTooShortErr() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errCredentialIDTooShort, "Credential ID is too short (minimum 16 bytes).", nil)
}

func errCredentialIDTooLongErr() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errCredentialIDTooLong, "Credential ID is too long (maximum 1023 bytes).", nil)
}

func errRecallPhraseFailedErr() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errRecallPhraseFailed, "Unable to generate a unique recall phrase.", nil)
}

func errEntryNotFoundErr() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errEntryNotFound, "No identity found for the given key.", nil)
}

func errAddressMustBePublicKeyErr() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errAddressMustBePublicKey, "Address must be a public-key identity.", nil)
}

func errSenderCannotBeAnonymousErr() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errSenderCannotBeAnonymous, "Anonymous senders cannot register an identity.", nil)
}

const (
	minCredentialIDLen = 16
	maxCredentialIDLen = 1023
	maxGenerationTries = 8

	seedCounterKey = "/config/idstore_seed"
	phrasePrefix   = "/idstore/00/"
	addressPrefix  = "/idstore/01/"
)

// Record is the credential associated with a recall phrase and an address.
type Record struct {
	Address      address.Address
	CredentialID []byte
	PublicKey    []byte
}

type wireRecord struct {
	Address      []byte `cbor:"0,keyasint"`
	CredentialID []byte `cbor:"1,keyasint"`
	PublicKey    []byte `cbor:"2,keyasint"`
}

func (r Record) marshal() ([]byte, error) {
	return mcbor.Marshal(wireRecord{Address: r.Address.ToVec(), CredentialID: r.CredentialID, PublicKey: r.PublicKey})
}

func unmarshalRecord(data []byte) (Record, error) {
	var w wireRecord
	if err := mcbor.Unmarshal(data, &w); err != nil {
		return Record{}, err
	}
	addr, err := address.FromBytes(w.Address)
	if err != nil {
		return Record{}, err
	}
	return Record{Address: addr, CredentialID: w.CredentialID, PublicKey: w.PublicKey}, nil
}

func phraseKey(phrase []string) []byte {
	joined := ""
	for i, word := range phrase {
		if i > 0 {
			joined += " "
		}
		joined += word
	}
	return append([]byte(phrasePrefix), []byte(joined)...)
}

func addressKey(addr address.Address) []byte {
	return append([]byte(addressPrefix), addr.ToVec()...)
}

// SetGenesisSeedCounter pre-seeds the recall-phrase seed counter, so a
// restored store continues issuing phrases after the last one a snapshot
// recorded instead of repeating them. many-rs's genesis-from-db bootstrap
// carries the same id_store_seed field for this reason.
func SetGenesisSeedCounter(store *merkle.Store, seed uint64) {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, seed)
	store.Apply([]merkle.Op{{Key: []byte(seedCounterKey), Value: raw}})
}

func nextSeed(store *merkle.Store) (uint64, error) {
	raw, found, err := store.Get([]byte(seedCounterKey))
	if err != nil {
		return 0, err
	}
	var seed uint64
	if found {
		seed = binary.BigEndian.Uint64(raw) + 1
	}
	next := make([]byte, 8)
	binary.BigEndian.PutUint64(next, seed)
	store.Apply([]merkle.Op{{Key: []byte(seedCounterKey), Value: next}})
	return seed, nil
}

// generatePhrase derives a 12-word BIP-39 mnemonic deterministically from
// seed, so that replaying the same sequence of Store calls across replicas
// always yields the same phrase for the same seed.
func generatePhrase(seed uint64) ([]string, error) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seed)
	entropy := sha256.Sum256(buf[:])
	mnemonic, err := bip39.NewMnemonic(entropy[:16])
	if err != nil {
		return nil, err
	}
	words := make([]string, 0, 12)
	start := 0
	for i := 0; i <= len(mnemonic); i++ {
		if i == len(mnemonic) || mnemonic[i] == ' ' {
			words = append(words, mnemonic[start:i])
			start = i + 1
		}
	}
	return words, nil
}

// Store registers a new identity, generating a fresh recall phrase. Rejects
// an anonymous sender and a non-public-key address, and enforces the
// credential id length bound (§ many-ledger/storage/idstore.rs).
func Store(store *merkle.Store, sender, addr address.Address, credentialID, publicKey []byte) ([]string, error) {
	if sender.IsAnonymous() {
		return nil, errSenderCannotBeAnonymousErr()
	}
	if !addr.IsPublicKey() {
		return nil, errAddressMustBePublicKeyErr()
	}
	if len(credentialID) < minCredentialIDLen {
		return nil, errCredentialIDTooShortErr()
	}
	if len(credentialID) > maxCredentialIDLen {
		return nil, errCredentialIDTooLongErr()
	}

	record := Record{Address: addr, CredentialID: credentialID, PublicKey: publicKey}
	data, err := record.marshal()
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxGenerationTries; attempt++ {
		seed, err := nextSeed(store)
		if err != nil {
			return nil, err
		}
		phrase, err := generatePhrase(seed)
		if err != nil {
			return nil, err
		}
		key := phraseKey(phrase)
		if _, found, err := store.Get(key); err != nil {
			return nil, err
		} else if found {
			continue
		}
		store.Apply([]merkle.Op{
			{Key: key, Value: data},
			{Key: addressKey(addr), Value: data},
		})
		return phrase, nil
	}
	return nil, errRecallPhraseFailedErr()
}

// GetFromRecallPhrase looks an identity up by its recall phrase.
func GetFromRecallPhrase(store *merkle.Store, phrase []string) (Record, error) {
	raw, found, err := store.Get(phraseKey(phrase))
	if err != nil {
		return Record{}, err
	}
	if !found {
		return Record{}, errEntryNotFoundErr()
	}
	return unmarshalRecord(raw)
}

// GetFromAddress looks an identity up by its address.
func GetFromAddress(store *merkle.Store, addr address.Address) (Record, error) {
	raw, found, err := store.Get(addressKey(addr))
	if err != nil {
		return Record{}, err
	}
	if !found {
		return Record{}, errEntryNotFoundErr()
	}
	return unmarshalRecord(raw)
}
