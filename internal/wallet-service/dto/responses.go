package dto

import "github.com/radieske/court-booking-platform/internal/wallet-service/wallet"

type TransactionResponse struct {
	Transaction *wallet.Transaction `json:"transaction"`
	Balance     int64               `json:"balance"`
}

type TransactionPage struct {
	Items []wallet.Transaction `json:"items"`
	Total int                  `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}
