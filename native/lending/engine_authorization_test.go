package lending_test

import (
	"errors"
	"testing"

	"isoledger/core/events"
	"isoledger/crypto"
	"isoledger/native/lending"
)

func signAuthorization(t *testing.T, f *fixture, key *crypto.PrivateKey, auth lending.Authorization) []byte {
	t.Helper()
	digest := lending.AuthorizationDigest(f.ledger, auth)
	sig, err := key.Sign(digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return sig
}

func newSigner(t *testing.T) (*crypto.PrivateKey, crypto.Address) {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key, key.PubKey().Address()
}

func TestSetAuthorization(t *testing.T) {
	f := newFixture(t)
	alice := crypto.DeriveAddress("alice")
	operator := crypto.DeriveAddress("operator")

	if err := f.engine.SetAuthorization(f.env(alice), operator, false); !errors.Is(err, lending.ErrAlreadySet) {
		t.Fatalf("expected ErrAlreadySet, got %v", err)
	}
	mustNoErr(t, f.engine.SetAuthorization(f.env(alice), operator, true))
	if !f.engine.IsAuthorized(alice, operator) || f.engine.IsAuthorized(operator, alice) {
		t.Fatalf("authorization is directional")
	}
	mustNoErr(t, f.engine.SetAuthorization(f.env(alice), operator, false))
	if f.engine.IsAuthorized(alice, operator) {
		t.Fatalf("revocation not applied")
	}
}

func TestSetAuthorizationWithSig(t *testing.T) {
	f := newFixture(t)
	key, authorizer := newSigner(t)
	operator := crypto.DeriveAddress("operator")
	relayer := crypto.DeriveAddress("relayer")

	auth := lending.Authorization{
		Authorizer:   authorizer,
		Authorized:   operator,
		IsAuthorized: true,
		Nonce:        0,
		Deadline:     f.now + 3_600,
	}
	sig := signAuthorization(t, f, key, auth)
	if err := f.engine.SetAuthorizationWithSig(f.env(relayer), auth, sig); err != nil {
		t.Fatalf("set authorization with sig: %v", err)
	}
	if !f.engine.IsAuthorized(authorizer, operator) {
		t.Fatalf("authorization not applied")
	}
	if f.engine.Nonce(authorizer) != 1 {
		t.Fatalf("nonce not consumed: %d", f.engine.Nonce(authorizer))
	}

	types := f.recorder.Types()
	if len(types) != 2 || types[0] != events.TypeLendingIncrementNonce || types[1] != events.TypeLendingSetAuthorization {
		t.Fatalf("unexpected events %v", types)
	}
	if got := f.recorder.Events()[1].Event().Attr("caller"); got != relayer.String() {
		t.Fatalf("caller attr %s", got)
	}

	// A replay is rejected: flipping back with the old nonce fails.
	revoke := auth
	revoke.IsAuthorized = false
	if err := f.engine.SetAuthorizationWithSig(f.env(relayer), revoke, signAuthorization(t, f, key, revoke)); !errors.Is(err, lending.ErrInvalidNonce) {
		t.Fatalf("expected ErrInvalidNonce, got %v", err)
	}
	revoke.Nonce = 1
	if err := f.engine.SetAuthorizationWithSig(f.env(relayer), revoke, signAuthorization(t, f, key, revoke)); err != nil {
		t.Fatalf("revoke with sig: %v", err)
	}
	if f.engine.IsAuthorized(authorizer, operator) {
		t.Fatalf("revocation not applied")
	}
}

func TestSetAuthorizationWithSigRejections(t *testing.T) {
	f := newFixture(t)
	key, authorizer := newSigner(t)
	otherKey, _ := newSigner(t)
	operator := crypto.DeriveAddress("operator")
	auth := lending.Authorization{
		Authorizer:   authorizer,
		Authorized:   operator,
		IsAuthorized: true,
		Deadline:     f.now,
	}

	expired := auth
	expired.Deadline = f.now - 1
	if err := f.engine.SetAuthorizationWithSig(f.env(operator), expired, signAuthorization(t, f, key, expired)); !errors.Is(err, lending.ErrSignatureExpired) {
		t.Fatalf("expected ErrSignatureExpired, got %v", err)
	}

	if err := f.engine.SetAuthorizationWithSig(f.env(operator), auth, signAuthorization(t, f, otherKey, auth)); !errors.Is(err, lending.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if err := f.engine.SetAuthorizationWithSig(f.env(operator), auth, []byte{1, 2, 3}); !errors.Is(err, lending.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for a malformed signature, got %v", err)
	}
	// Failed attempts neither consume the nonce nor emit anything.
	if f.engine.Nonce(authorizer) != 0 || len(f.recorder.Events()) != 0 {
		t.Fatalf("rejected signature had side effects")
	}

	noop := auth
	noop.IsAuthorized = false
	if err := f.engine.SetAuthorizationWithSig(f.env(operator), noop, signAuthorization(t, f, key, noop)); !errors.Is(err, lending.ErrAlreadySet) {
		t.Fatalf("expected ErrAlreadySet, got %v", err)
	}

	// A signature for another ledger does not verify here.
	foreign := lending.AuthorizationDigest(crypto.DeriveAddress("other-ledger"), auth)
	sig, err := key.Sign(foreign[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := f.engine.SetAuthorizationWithSig(f.env(operator), auth, sig); !errors.Is(err, lending.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for a foreign domain, got %v", err)
	}

	// The deadline itself is still valid.
	if err := f.engine.SetAuthorizationWithSig(f.env(operator), auth, signAuthorization(t, f, key, auth)); err != nil {
		t.Fatalf("signature at its deadline: %v", err)
	}
}

func TestAuthorizationDigestBindsEveryField(t *testing.T) {
	f := newFixture(t)
	base := lending.Authorization{
		Authorizer:   crypto.DeriveAddress("a"),
		Authorized:   crypto.DeriveAddress("b"),
		IsAuthorized: true,
		Nonce:        7,
		Deadline:     99,
	}
	digest := lending.AuthorizationDigest(f.ledger, base)
	variants := []lending.Authorization{base, base, base, base, base}
	variants[0].Authorizer = crypto.DeriveAddress("c")
	variants[1].Authorized = crypto.DeriveAddress("c")
	variants[2].IsAuthorized = false
	variants[3].Nonce = 8
	variants[4].Deadline = 100
	for i, v := range variants {
		if lending.AuthorizationDigest(f.ledger, v) == digest {
			t.Fatalf("variant %d shares the digest", i)
		}
	}
	if lending.DomainSeparator(f.ledger) == lending.DomainSeparator(f.owner) {
		t.Fatalf("domain separator ignores the ledger address")
	}
}
