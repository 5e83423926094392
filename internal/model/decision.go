package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Decision reasons. A validator rejection also names the validator.
const (
	ReasonAdmitted          = "admitted"
	ReasonValidatorRejected = "validator_rejected"
	ReasonBudgetExceeded    = "budget_exceeded"
	ReasonAlreadyProcessed  = "already_processed"
	ReasonInitFailed        = "init_failed"
	ReasonPriceUnavailable  = "price_unavailable"
	ReasonStoreUnavailable  = "store_unavailable"
	ReasonInvalidOrder      = "invalid_order"
	ReasonInternal          = "internal_error"
)

// Decision is the outcome of one admission evaluation.
type Decision struct {
	OrderID   string          `json:"order_id"`
	Admitted  bool            `json:"admitted"`
	Reason    string          `json:"reason"`
	Validator string          `json:"validator,omitempty"`
	USDWorth  decimal.Decimal `json:"usd_worth"`
	GiveChain ChainID         `json:"give_chain_id"`
	TakeChain ChainID         `json:"take_chain_id"`
	At        time.Time       `json:"at"`
}

// AdmissionRecord is the persisted form of a Decision.
type AdmissionRecord struct {
	ID        string          `json:"id" gorm:"primaryKey;type:text"`
	OrderID   string          `json:"order_id" gorm:"index;type:text"`
	Admitted  bool            `json:"admitted"`
	Reason    string          `json:"reason" gorm:"type:text"`
	Validator string          `json:"validator" gorm:"type:text"`
	USDWorth  decimal.Decimal `json:"usd_worth" gorm:"type:numeric"`
	GiveChain uint64          `json:"give_chain_id"`
	TakeChain uint64          `json:"take_chain_id"`
	CreatedAt time.Time       `json:"created_at" gorm:"index"`
}

func (AdmissionRecord) TableName() string {
	return "admission_records"
}
