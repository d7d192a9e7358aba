package expense

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/somanshu-agarwal/BareMinimum/internal/model/customerr"
)

// Mode is the payment channel an expense went through.
type Mode string

const (
	Cash       Mode = "Cash"
	UPI        Mode = "UPI"
	Card       Mode = "Card"
	Netbanking Mode = "Netbanking"
	Other      Mode = "Other"
)

var Modes = []Mode{Cash, UPI, Card, Netbanking, Other}

// ParseMode folds any unrecognized channel into Other.
func ParseMode(s string) Mode {
	for _, m := range Modes {
		if strings.EqualFold(string(m), s) {
			return m
		}
	}
	return Other
}

const (
	defaultCategory = "Misc"
	defaultMerchant = "Unknown"
)

// Categories is the fixed taxonomy offered by the app.
var Categories = []string{
	"Groceries", "Canteen", "Travel", "Bill", "Rent",
	"Investment", "Gym", "Shopping", defaultCategory,
}

var quickCommerceKeywords = map[string]struct{}{
	"blinkit": {},
	"zepto":   {},
	"dunzo":   {},
	"blink":   {},
}

// Record is the atomic unit of the ledger. Synced and Owner are sync
// bookkeeping: Synced is true only once the record has a confirmed remote
// counterpart, and a synced record always carries a non-empty Owner.
type Record struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Mode      Mode            `json:"mode"`
	Merchant  string          `json:"merchant"`
	Category  string          `json:"category"`
	Note      string          `json:"note"`
	Timestamp time.Time       `json:"timestamp"`
	Quick     bool            `json:"quick"`
	Synced    bool            `json:"synced"`
	Owner     string          `json:"owner,omitempty"`
}

// Fields is what the presentation layer submits to create a record.
type Fields struct {
	Amount   decimal.Decimal
	Mode     Mode
	Merchant string
	Category string
	Note     string
}

// New builds an unsynced record from user input. The id is generated on the
// device and never reused; the quick flag is computed once here and not
// recomputed on edits.
func New(f Fields) (Record, error) {
	if !f.Amount.IsPositive() {
		return Record{}, &customerr.InvalidRecordError{Err: "amount must be positive"}
	}

	merchant := strings.TrimSpace(f.Merchant)
	if merchant == "" {
		merchant = defaultMerchant
	}
	category := strings.TrimSpace(f.Category)
	if category == "" {
		category = defaultCategory
	}
	mode := f.Mode
	if mode == "" {
		mode = UPI
	}

	return Record{
		ID:        uuid.NewString(),
		Amount:    f.Amount,
		Mode:      mode,
		Merchant:  merchant,
		Category:  category,
		Note:      f.Note,
		Timestamp: time.Now().UTC(),
		Quick:     isQuickCommerce(merchant),
		Synced:    false,
	}, nil
}

func isQuickCommerce(merchant string) bool {
	for _, word := range strings.Fields(strings.ToLower(merchant)) {
		if _, ok := quickCommerceKeywords[word]; ok {
			return true
		}
	}
	return false
}

// Tombstone records the intent to delete an already-synced record on the
// remote store. It survives restarts so a failed remote delete is retried
// on the next sync cycle instead of being forgotten.
type Tombstone struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	DeletedAt time.Time `json:"deletedAt"`
}
