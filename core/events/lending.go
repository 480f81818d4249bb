package events

import (
	"strconv"

	"github.com/holiman/uint256"

	"isoledger/core/types"
	"isoledger/crypto"
)

const (
	// TypeLendingSetOwner is emitted when ledger ownership changes hands.
	TypeLendingSetOwner = "lending.setOwner"
	// TypeLendingSetFee is emitted when a market fee is updated.
	TypeLendingSetFee = "lending.setFee"
	// TypeLendingSetFeeRecipient is emitted when the fee recipient changes.
	TypeLendingSetFeeRecipient = "lending.setFeeRecipient"
	// TypeLendingEnableIRM is emitted when a rate model is allow-listed.
	TypeLendingEnableIRM = "lending.enableIrm"
	// TypeLendingEnableLLTV is emitted when a liquidation LTV is allow-listed.
	TypeLendingEnableLLTV = "lending.enableLltv"
	// TypeLendingCreateMarket is emitted when a market is created.
	TypeLendingCreateMarket = "lending.createMarket"
	TypeLendingSupply       = "lending.supply"
	TypeLendingWithdraw     = "lending.withdraw"
	TypeLendingBorrow       = "lending.borrow"
	TypeLendingRepay        = "lending.repay"
	// TypeLendingSupplyCollateral is emitted when collateral is posted.
	TypeLendingSupplyCollateral = "lending.supplyCollateral"
	// TypeLendingWithdrawCollateral is emitted when collateral is released.
	TypeLendingWithdrawCollateral = "lending.withdrawCollateral"
	// TypeLendingLiquidate is emitted for every liquidation, including the bad
	// debt it realised.
	TypeLendingLiquidate = "lending.liquidate"
	// TypeLendingFlashLoan is emitted for every repaid flash loan.
	TypeLendingFlashLoan = "lending.flashLoan"
	// TypeLendingSetAuthorization is emitted when an operator grant changes.
	TypeLendingSetAuthorization = "lending.setAuthorization"
	// TypeLendingIncrementNonce is emitted when a signed authorization
	// consumes a nonce.
	TypeLendingIncrementNonce = "lending.incrementNonce"
	// TypeLendingAccrueInterest is emitted whenever interest is accrued on a
	// market, even when the accrued amount is zero.
	TypeLendingAccrueInterest = "lending.accrueInterest"
)

// LendingSetOwner records an ownership transfer.
type LendingSetOwner struct {
	NewOwner crypto.Address
}

// EventType satisfies the Event interface.
func (LendingSetOwner) EventType() string { return TypeLendingSetOwner }

// Event converts the structured payload into a broadcastable event.
func (e LendingSetOwner) Event() *types.Event {
	return &types.Event{Type: TypeLendingSetOwner, Attributes: map[string]string{
		"newOwner": formatAddress(e.NewOwner),
	}}
}

// LendingSetFee records a fee update on a market.
type LendingSetFee struct {
	MarketID string
	Fee      *uint256.Int
}

// EventType satisfies the Event interface.
func (LendingSetFee) EventType() string { return TypeLendingSetFee }

// Event converts the structured payload into a broadcastable event.
func (e LendingSetFee) Event() *types.Event {
	return &types.Event{Type: TypeLendingSetFee, Attributes: map[string]string{
		"id":  e.MarketID,
		"fee": formatAmount(e.Fee),
	}}
}

// LendingSetFeeRecipient records a fee recipient update.
type LendingSetFeeRecipient struct {
	FeeRecipient crypto.Address
}

// EventType satisfies the Event interface.
func (LendingSetFeeRecipient) EventType() string { return TypeLendingSetFeeRecipient }

// Event converts the structured payload into a broadcastable event.
func (e LendingSetFeeRecipient) Event() *types.Event {
	return &types.Event{Type: TypeLendingSetFeeRecipient, Attributes: map[string]string{
		"feeRecipient": formatAddress(e.FeeRecipient),
	}}
}

// LendingEnableIRM records a rate model joining the allow-list.
type LendingEnableIRM struct {
	IRM crypto.Address
}

// EventType satisfies the Event interface.
func (LendingEnableIRM) EventType() string { return TypeLendingEnableIRM }

// Event converts the structured payload into a broadcastable event.
func (e LendingEnableIRM) Event() *types.Event {
	return &types.Event{Type: TypeLendingEnableIRM, Attributes: map[string]string{
		"irm": formatAddress(e.IRM),
	}}
}

// LendingEnableLLTV records a liquidation LTV joining the allow-list.
type LendingEnableLLTV struct {
	LLTV *uint256.Int
}

// EventType satisfies the Event interface.
func (LendingEnableLLTV) EventType() string { return TypeLendingEnableLLTV }

// Event converts the structured payload into a broadcastable event.
func (e LendingEnableLLTV) Event() *types.Event {
	return &types.Event{Type: TypeLendingEnableLLTV, Attributes: map[string]string{
		"lltv": formatAmount(e.LLTV),
	}}
}

// LendingCreateMarket records the parameters of a newly created market.
type LendingCreateMarket struct {
	MarketID        string
	LoanToken       crypto.Address
	CollateralToken crypto.Address
	Oracle          crypto.Address
	IRM             crypto.Address
	LLTV            *uint256.Int
}

// EventType satisfies the Event interface.
func (LendingCreateMarket) EventType() string { return TypeLendingCreateMarket }

// Event converts the structured payload into a broadcastable event.
func (e LendingCreateMarket) Event() *types.Event {
	return &types.Event{Type: TypeLendingCreateMarket, Attributes: map[string]string{
		"id":              e.MarketID,
		"loanToken":       formatAddress(e.LoanToken),
		"collateralToken": formatAddress(e.CollateralToken),
		"oracle":          formatAddress(e.Oracle),
		"irm":             formatAddress(e.IRM),
		"lltv":            formatAmount(e.LLTV),
	}}
}

// LendingSupply captures loan assets entering the supply side of a market.
type LendingSupply struct {
	MarketID string
	Caller   crypto.Address
	OnBehalf crypto.Address
	Assets   *uint256.Int
	Shares   *uint256.Int
}

// EventType satisfies the Event interface.
func (LendingSupply) EventType() string { return TypeLendingSupply }

// Event converts the structured payload into a broadcastable event.
func (e LendingSupply) Event() *types.Event {
	return &types.Event{Type: TypeLendingSupply, Attributes: map[string]string{
		"id":       e.MarketID,
		"caller":   formatAddress(e.Caller),
		"onBehalf": formatAddress(e.OnBehalf),
		"assets":   formatAmount(e.Assets),
		"shares":   formatAmount(e.Shares),
	}}
}

// LendingWithdraw captures loan assets leaving the supply side of a market.
type LendingWithdraw struct {
	MarketID string
	Caller   crypto.Address
	OnBehalf crypto.Address
	Receiver crypto.Address
	Assets   *uint256.Int
	Shares   *uint256.Int
}

// EventType satisfies the Event interface.
func (LendingWithdraw) EventType() string { return TypeLendingWithdraw }

// Event converts the structured payload into a broadcastable event.
func (e LendingWithdraw) Event() *types.Event {
	return &types.Event{Type: TypeLendingWithdraw, Attributes: map[string]string{
		"id":       e.MarketID,
		"caller":   formatAddress(e.Caller),
		"onBehalf": formatAddress(e.OnBehalf),
		"receiver": formatAddress(e.Receiver),
		"assets":   formatAmount(e.Assets),
		"shares":   formatAmount(e.Shares),
	}}
}

// LendingBorrow captures new debt drawn from a market.
type LendingBorrow struct {
	MarketID string
	Caller   crypto.Address
	OnBehalf crypto.Address
	Receiver crypto.Address
	Assets   *uint256.Int
	Shares   *uint256.Int
}

// EventType satisfies the Event interface.
func (LendingBorrow) EventType() string { return TypeLendingBorrow }

// Event converts the structured payload into a broadcastable event.
func (e LendingBorrow) Event() *types.Event {
	return &types.Event{Type: TypeLendingBorrow, Attributes: map[string]string{
		"id":       e.MarketID,
		"caller":   formatAddress(e.Caller),
		"onBehalf": formatAddress(e.OnBehalf),
		"receiver": formatAddress(e.Receiver),
		"assets":   formatAmount(e.Assets),
		"shares":   formatAmount(e.Shares),
	}}
}

// LendingRepay captures debt being paid back.
type LendingRepay struct {
	MarketID string
	Caller   crypto.Address
	OnBehalf crypto.Address
	Assets   *uint256.Int
	Shares   *uint256.Int
}

// EventType satisfies the Event interface.
func (LendingRepay) EventType() string { return TypeLendingRepay }

// Event converts the structured payload into a broadcastable event.
func (e LendingRepay) Event() *types.Event {
	return &types.Event{Type: TypeLendingRepay, Attributes: map[string]string{
		"id":       e.MarketID,
		"caller":   formatAddress(e.Caller),
		"onBehalf": formatAddress(e.OnBehalf),
		"assets":   formatAmount(e.Assets),
		"shares":   formatAmount(e.Shares),
	}}
}

// LendingSupplyCollateral captures collateral posted to a position.
type LendingSupplyCollateral struct {
	MarketID string
	Caller   crypto.Address
	OnBehalf crypto.Address
	Assets   *uint256.Int
}

// EventType satisfies the Event interface.
func (LendingSupplyCollateral) EventType() string { return TypeLendingSupplyCollateral }

// Event converts the structured payload into a broadcastable event.
func (e LendingSupplyCollateral) Event() *types.Event {
	return &types.Event{Type: TypeLendingSupplyCollateral, Attributes: map[string]string{
		"id":       e.MarketID,
		"caller":   formatAddress(e.Caller),
		"onBehalf": formatAddress(e.OnBehalf),
		"assets":   formatAmount(e.Assets),
	}}
}

// LendingWithdrawCollateral captures collateral released from a position.
type LendingWithdrawCollateral struct {
	MarketID string
	Caller   crypto.Address
	OnBehalf crypto.Address
	Receiver crypto.Address
	Assets   *uint256.Int
}

// EventType satisfies the Event interface.
func (LendingWithdrawCollateral) EventType() string { return TypeLendingWithdrawCollateral }

// Event converts the structured payload into a broadcastable event.
func (e LendingWithdrawCollateral) Event() *types.Event {
	return &types.Event{Type: TypeLendingWithdrawCollateral, Attributes: map[string]string{
		"id":       e.MarketID,
		"caller":   formatAddress(e.Caller),
		"onBehalf": formatAddress(e.OnBehalf),
		"receiver": formatAddress(e.Receiver),
		"assets":   formatAmount(e.Assets),
	}}
}

// LendingLiquidate captures a liquidation and any bad debt it socialised.
type LendingLiquidate struct {
	MarketID      string
	Caller        crypto.Address
	Borrower      crypto.Address
	RepaidAssets  *uint256.Int
	RepaidShares  *uint256.Int
	SeizedAssets  *uint256.Int
	BadDebtAssets *uint256.Int
	BadDebtShares *uint256.Int
}

// EventType satisfies the Event interface.
func (LendingLiquidate) EventType() string { return TypeLendingLiquidate }

// Event converts the structured payload into a broadcastable event.
func (e LendingLiquidate) Event() *types.Event {
	return &types.Event{Type: TypeLendingLiquidate, Attributes: map[string]string{
		"id":            e.MarketID,
		"caller":        formatAddress(e.Caller),
		"borrower":      formatAddress(e.Borrower),
		"repaidAssets":  formatAmount(e.RepaidAssets),
		"repaidShares":  formatAmount(e.RepaidShares),
		"seizedAssets":  formatAmount(e.SeizedAssets),
		"badDebtAssets": formatAmount(e.BadDebtAssets),
		"badDebtShares": formatAmount(e.BadDebtShares),
	}}
}

// LendingFlashLoan captures a flash loan that was repaid in full.
type LendingFlashLoan struct {
	Caller crypto.Address
	Token  crypto.Address
	Assets *uint256.Int
}

// EventType satisfies the Event interface.
func (LendingFlashLoan) EventType() string { return TypeLendingFlashLoan }

// Event converts the structured payload into a broadcastable event.
func (e LendingFlashLoan) Event() *types.Event {
	return &types.Event{Type: TypeLendingFlashLoan, Attributes: map[string]string{
		"caller": formatAddress(e.Caller),
		"token":  formatAddress(e.Token),
		"assets": formatAmount(e.Assets),
	}}
}

// LendingSetAuthorization records an operator grant or revocation.
type LendingSetAuthorization struct {
	Caller       crypto.Address
	Authorizer   crypto.Address
	Authorized   crypto.Address
	IsAuthorized bool
}

// EventType satisfies the Event interface.
func (LendingSetAuthorization) EventType() string { return TypeLendingSetAuthorization }

// Event converts the structured payload into a broadcastable event.
func (e LendingSetAuthorization) Event() *types.Event {
	return &types.Event{Type: TypeLendingSetAuthorization, Attributes: map[string]string{
		"caller":       formatAddress(e.Caller),
		"authorizer":   formatAddress(e.Authorizer),
		"authorized":   formatAddress(e.Authorized),
		"isAuthorized": formatBool(e.IsAuthorized),
	}}
}

// LendingIncrementNonce records a nonce consumed by a signed authorization.
type LendingIncrementNonce struct {
	Caller     crypto.Address
	Authorizer crypto.Address
	UsedNonce  uint64
}

// EventType satisfies the Event interface.
func (LendingIncrementNonce) EventType() string { return TypeLendingIncrementNonce }

// Event converts the structured payload into a broadcastable event.
func (e LendingIncrementNonce) Event() *types.Event {
	return &types.Event{Type: TypeLendingIncrementNonce, Attributes: map[string]string{
		"caller":     formatAddress(e.Caller),
		"authorizer": formatAddress(e.Authorizer),
		"usedNonce":  strconv.FormatUint(e.UsedNonce, 10),
	}}
}

// LendingAccrueInterest captures interest added to a market's borrow side and
// the fee shares minted from it.
type LendingAccrueInterest struct {
	MarketID       string
	PrevBorrowRate *uint256.Int
	Interest       *uint256.Int
	FeeShares      *uint256.Int
}

// EventType satisfies the Event interface.
func (LendingAccrueInterest) EventType() string { return TypeLendingAccrueInterest }

// Event converts the structured payload into a broadcastable event.
func (e LendingAccrueInterest) Event() *types.Event {
	return &types.Event{Type: TypeLendingAccrueInterest, Attributes: map[string]string{
		"id":             e.MarketID,
		"prevBorrowRate": formatAmount(e.PrevBorrowRate),
		"interest":       formatAmount(e.Interest),
		"feeShares":      formatAmount(e.FeeShares),
	}}
}
