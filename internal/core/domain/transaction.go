package domain

import "time"

const defaultTransactionTitle = "Transaction"

// Transaction is a card transaction joined with its category.
type Transaction struct {
	ID            string
	UserID        string
	CardID        string
	Amount        float64
	CategoryID    *string
	CategoryName  *string
	CategoryColor *string
	CreatedAt     time.Time
}

// TransactionPayload is the shape clients render on the transactions stream.
type TransactionPayload struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Amount        float64   `json:"amount"`
	Date          time.Time `json:"date"`
	Type          string    `json:"type"`
	Category      *string   `json:"category,omitempty"`
	CategoryColor *string   `json:"categoryColor,omitempty"`
}

// Kind is "credit" for non-negative amounts and "debit" otherwise.
func (t Transaction) Kind() string {
	if t.Amount >= 0 {
		return "credit"
	}
	return "debit"
}

// Payload builds the client-facing view of the transaction.
func (t Transaction) Payload() TransactionPayload {
	title := defaultTransactionTitle
	if t.CategoryName != nil && *t.CategoryName != "" {
		title = *t.CategoryName
	}
	return TransactionPayload{
		ID:            t.ID,
		Title:         title,
		Amount:        t.Amount,
		Date:          t.CreatedAt,
		Type:          t.Kind(),
		Category:      t.CategoryName,
		CategoryColor: t.CategoryColor,
	}
}
