package lending

import (
	"bytes"
	"sort"

	"github.com/holiman/uint256"

	"isoledger/core/journal"
	"isoledger/crypto"
)

type positionKey struct {
	id      MarketID
	account crypto.Address
}

type authorizationKey struct {
	authorizer crypto.Address
	authorized crypto.Address
}

// ledgerState holds every persistent ledger record. Each setter journals the
// previous value so a failed call can be rolled back.
type ledgerState struct {
	journal *journal.Journal

	owner        crypto.Address
	feeRecipient crypto.Address
	markets      map[MarketID]Market
	params       map[MarketID]MarketParams
	positions    map[positionKey]Position
	irms         map[crypto.Address]bool
	lltvs        map[uint256.Int]bool
	authorized   map[authorizationKey]bool
	nonces       map[crypto.Address]uint64
}

func newLedgerState(j *journal.Journal, owner crypto.Address) *ledgerState {
	return &ledgerState{
		journal:    j,
		owner:      owner,
		markets:    make(map[MarketID]Market),
		params:     make(map[MarketID]MarketParams),
		positions:  make(map[positionKey]Position),
		irms:       make(map[crypto.Address]bool),
		lltvs:      make(map[uint256.Int]bool),
		authorized: make(map[authorizationKey]bool),
		nonces:     make(map[crypto.Address]uint64),
	}
}

func (s *ledgerState) setOwner(owner crypto.Address) {
	prev := s.owner
	s.owner = owner
	s.journal.Append(func() { s.owner = prev })
}

func (s *ledgerState) setFeeRecipient(recipient crypto.Address) {
	prev := s.feeRecipient
	s.feeRecipient = recipient
	s.journal.Append(func() { s.feeRecipient = prev })
}

func (s *ledgerState) market(id MarketID) (Market, bool) {
	m, ok := s.markets[id]
	return m, ok
}

func (s *ledgerState) setMarket(id MarketID, m Market) {
	prev, existed := s.markets[id]
	s.markets[id] = m
	s.journal.Append(func() {
		if existed {
			s.markets[id] = prev
		} else {
			delete(s.markets, id)
		}
	})
}

func (s *ledgerState) marketParams(id MarketID) (MarketParams, bool) {
	p, ok := s.params[id]
	return p, ok
}

func (s *ledgerState) setMarketParams(id MarketID, p MarketParams) {
	prev, existed := s.params[id]
	s.params[id] = p
	s.journal.Append(func() {
		if existed {
			s.params[id] = prev
		} else {
			delete(s.params, id)
		}
	})
}

func (s *ledgerState) marketIDs() []MarketID {
	ids := make([]MarketID, 0, len(s.markets))
	for id := range s.markets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids
}

func (s *ledgerState) position(id MarketID, account crypto.Address) Position {
	return s.positions[positionKey{id: id, account: account}]
}

// setPosition stores p, dropping the record once it is empty.
func (s *ledgerState) setPosition(id MarketID, account crypto.Address, p Position) {
	key := positionKey{id: id, account: account}
	prev, existed := s.positions[key]
	if p.IsZero() {
		delete(s.positions, key)
	} else {
		s.positions[key] = p
	}
	s.journal.Append(func() {
		if existed {
			s.positions[key] = prev
		} else {
			delete(s.positions, key)
		}
	})
}

func (s *ledgerState) irmEnabled(addr crypto.Address) bool { return s.irms[addr] }

func (s *ledgerState) enableIRM(addr crypto.Address) {
	s.irms[addr] = true
	s.journal.Append(func() { delete(s.irms, addr) })
}

func (s *ledgerState) lltvEnabled(lltv *uint256.Int) bool { return s.lltvs[*lltv] }

func (s *ledgerState) enableLLTV(lltv *uint256.Int) {
	key := *lltv
	s.lltvs[key] = true
	s.journal.Append(func() { delete(s.lltvs, key) })
}

func (s *ledgerState) isAuthorized(authorizer, authorized crypto.Address) bool {
	return s.authorized[authorizationKey{authorizer: authorizer, authorized: authorized}]
}

func (s *ledgerState) setAuthorized(authorizer, authorized crypto.Address, value bool) {
	key := authorizationKey{authorizer: authorizer, authorized: authorized}
	prev := s.authorized[key]
	if value {
		s.authorized[key] = true
	} else {
		delete(s.authorized, key)
	}
	s.journal.Append(func() {
		if prev {
			s.authorized[key] = true
		} else {
			delete(s.authorized, key)
		}
	})
}

func (s *ledgerState) nonce(addr crypto.Address) uint64 { return s.nonces[addr] }

func (s *ledgerState) setNonce(addr crypto.Address, nonce uint64) {
	prev, existed := s.nonces[addr]
	s.nonces[addr] = nonce
	s.journal.Append(func() {
		if existed {
			s.nonces[addr] = prev
		} else {
			delete(s.nonces, addr)
		}
	})
}
