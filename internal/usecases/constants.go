package usecases

// Ledger operation names used for metrics and logs
const (
	OpCredit             = "credit"
	OpDebit              = "debit"
	OpTransfer           = "transfer"
	OpConvert            = "convert"
	OpSendGift           = "send_gift"
	OpStartRecharge      = "start_recharge"
	OpConfirmRecharge    = "confirm_recharge"
	OpRequestWithdrawal  = "request_withdrawal"
	OpConfirmWithdrawal  = "confirm_withdrawal"
	ResultSuccess        = "success"
	ResultRejected       = "rejected"
	ResultStorageFailure = "storage_failure"
)

// MaxGiftQuantity caps how many gifts one request may send
const MaxGiftQuantity = 9999

// AmountScale is the number of decimal places stored for balances and transaction amounts
const AmountScale int32 = 4
