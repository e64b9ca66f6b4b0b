package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/radieske/court-booking-platform/internal/wallet-service/dto"
	"github.com/radieske/court-booking-platform/internal/wallet-service/wallet"
)

var (
	ErrInsufficientBalance = errors.New("wallet: insufficient balance")
	ErrWalletNotFound      = errors.New("wallet: not found")
	ErrWalletInactive      = errors.New("wallet: not active")
)

// Client fala com a API HTTP do wallet-service.
type Client struct {
	http *resty.Client
}

func New(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(2*time.Second).
			SetHeader("Content-Type", "application/json"),
	}
}

// TopUp credita a carteira; reference liga o lançamento ao pagamento de origem.
func (c *Client) TopUp(ctx context.Context, userID string, amount int64, method, description, reference string) (*dto.TransactionResponse, error) {
	return c.post(ctx, userID, "/wallet/{userId}/topup", dto.TopUpRequest{
		Amount:        amount,
		PaymentMethod: method,
		Description:   description,
		Reference:     reference,
	})
}

// FindTopUp procura a recarga já lançada com esta referência exata; nil quando não existe.
func (c *Client) FindTopUp(ctx context.Context, userID, reference string) (*wallet.Transaction, error) {
	var page dto.TransactionPage
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("userId", userID).
		SetQueryParams(map[string]string{
			"type":      string(wallet.TypeTopUp),
			"reference": reference,
			"limit":     "100",
		}).
		SetResult(&page).
		Get("/wallet/{userId}/transactions")
	if err != nil {
		return nil, err
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("wallet http %d: %s", res.StatusCode(), res.String())
	}
	// o filtro do servidor casa por trecho
	for i := range page.Items {
		if page.Items[i].Reference == reference {
			return &page.Items[i], nil
		}
	}
	return nil, nil
}

func (c *Client) PayBooking(ctx context.Context, userID string, amount, bookingID int64, courtName string) (*dto.TransactionResponse, error) {
	return c.post(ctx, userID, "/wallet/{userId}/pay-booking", dto.BookingChargeRequest{
		Amount: amount, BookingID: bookingID, CourtName: courtName,
	})
}

func (c *Client) RefundBooking(ctx context.Context, userID string, amount, bookingID int64, courtName string) (*dto.TransactionResponse, error) {
	return c.post(ctx, userID, "/wallet/{userId}/refund-booking", dto.BookingChargeRequest{
		Amount: amount, BookingID: bookingID, CourtName: courtName,
	})
}

func (c *Client) post(ctx context.Context, userID, path string, body any) (*dto.TransactionResponse, error) {
	var out dto.TransactionResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("userId", userID).
		SetBody(body).
		SetResult(&out).
		Post(path)
	if err != nil {
		return nil, err
	}
	switch res.StatusCode() {
	case http.StatusOK, http.StatusCreated:
		return &out, nil
	case http.StatusNotFound:
		return nil, ErrWalletNotFound
	case http.StatusConflict:
		// o servidor usa 409 para saldo e para carteira suspensa; o corpo diferencia
		if strings.Contains(res.String(), wallet.ErrWalletInactive.Error()) {
			return nil, ErrWalletInactive
		}
		return nil, ErrInsufficientBalance
	default:
		return nil, fmt.Errorf("wallet http %d: %s", res.StatusCode(), res.String())
	}
}
