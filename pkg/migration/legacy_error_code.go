package migration

import (
	"github.com/synnergy-chain/manynet/pkg/manyerr"
	"github.com/synnergy-chain/manynet/pkg/merkle"
)

// legacyErrorCodeFallbackKey records, in the committed store, whether a
// chain has the legacy numeric-error-code compatibility behavior turned on
// for the current height.
const legacyErrorCodeFallbackKey = "/migrations/legacy_error_code_fallback"

// NewLegacyErrorCodeFallback resolves Open Question (a): older clients
// expect unrecognized application-specific codes to fall back to
// CodeUnknown instead of round-tripping the raw positive integer. This
// migration is height-gated and, per RunInitialize/RunUpdate, absent from
// a chain's migrations.yaml by default — new chains see the modern
// behavior (raw codes preserved) unless they explicitly opt in.
func NewLegacyErrorCodeFallback() *Migration {
	return NewInitializeAndUpdate(
		"LegacyErrorCodeFallback",
		"Falls unrecognized application-specific error codes back to Unknown for pre-migration clients.",
		func(store *merkle.Store) error {
			store.Apply([]merkle.Op{{Key: []byte(legacyErrorCodeFallbackKey), Value: []byte{1}}})
			return nil
		},
		func(store *merkle.Store) error { return nil },
	)
}

// ApplyLegacyErrorCodeFallback rewrites err to CodeUnknown when enabled is
// true and err's code is application-specific but not recognized by this
// build's message table.
func ApplyLegacyErrorCodeFallback(enabled bool, err *manyerr.Error) *manyerr.Error {
	if !enabled || err == nil || !err.Code.IsApplicationSpecific() {
		return err
	}
	if err.Code.HasTemplate() {
		return err
	}
	return manyerr.Unknown(err.Error())
}
