package lending

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"isoledger/core/events"
	"isoledger/crypto"
)

var (
	domainTypeHash        = ethcrypto.Keccak256([]byte("EIP712Domain(address verifyingContract)"))
	authorizationTypeHash = ethcrypto.Keccak256([]byte("Authorization(address authorizer,address authorized,bool isAuthorized,uint256 nonce,uint256 deadline)"))
)

// DomainSeparator binds signed messages to one ledger instance.
func DomainSeparator(ledger crypto.Address) [32]byte {
	return ethcrypto.Keccak256Hash(domainTypeHash, ledger.Word())
}

// AuthorizationDigest returns the digest an authorizer signs to grant or
// revoke an operator on the ledger at address ledger.
func AuthorizationDigest(ledger crypto.Address, auth Authorization) [32]byte {
	var flag uint256.Int
	if auth.IsAuthorized {
		flag.SetOne()
	}
	flagWord := flag.Bytes32()
	nonceWord := uint256.NewInt(auth.Nonce).Bytes32()
	deadlineWord := uint256.NewInt(auth.Deadline).Bytes32()
	structHash := ethcrypto.Keccak256(
		authorizationTypeHash,
		auth.Authorizer.Word(),
		auth.Authorized.Word(),
		flagWord[:],
		nonceWord[:],
		deadlineWord[:],
	)
	domain := DomainSeparator(ledger)
	return ethcrypto.Keccak256Hash([]byte{0x19, 0x01}, domain[:], structHash)
}

// SetAuthorization lets the sender grant or revoke authorized as an operator
// of its positions.
func (e *Engine) SetAuthorization(env Env, authorized crypto.Address, isAuthorized bool) error {
	if err := e.guard(false); err != nil {
		return err
	}
	return e.execute(env, func() error {
		if e.state.isAuthorized(env.Sender, authorized) == isAuthorized {
			return ErrAlreadySet
		}
		e.state.setAuthorized(env.Sender, authorized, isAuthorized)
		e.emit(events.LendingSetAuthorization{
			Caller:       env.Sender,
			Authorizer:   env.Sender,
			Authorized:   authorized,
			IsAuthorized: isAuthorized,
		})
		return nil
	})
}

// SetAuthorizationWithSig applies an authorization signed by its authorizer.
// Any sender may relay it. The authorizer's nonce is consumed.
func (e *Engine) SetAuthorizationWithSig(env Env, auth Authorization, signature []byte) error {
	if err := e.guard(false); err != nil {
		return err
	}
	return e.execute(env, func() error {
		if e.state.isAuthorized(auth.Authorizer, auth.Authorized) == auth.IsAuthorized {
			return ErrAlreadySet
		}
		if env.Now > auth.Deadline {
			return ErrSignatureExpired
		}
		current := e.state.nonce(auth.Authorizer)
		if auth.Nonce != current {
			return ErrInvalidNonce
		}
		e.state.setNonce(auth.Authorizer, current+1)
		e.emit(events.LendingIncrementNonce{Caller: env.Sender, Authorizer: auth.Authorizer, UsedNonce: current})

		digest := AuthorizationDigest(e.address, auth)
		signer, err := crypto.RecoverAddress(digest[:], signature)
		if err != nil || signer.IsZero() || signer != auth.Authorizer {
			return ErrInvalidSignature
		}

		e.state.setAuthorized(auth.Authorizer, auth.Authorized, auth.IsAuthorized)
		e.emit(events.LendingSetAuthorization{
			Caller:       env.Sender,
			Authorizer:   auth.Authorizer,
			Authorized:   auth.Authorized,
			IsAuthorized: auth.IsAuthorized,
		})
		return nil
	})
}
