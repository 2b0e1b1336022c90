package mpesa

import (
	"context"
	"strconv"
)

const transactionType = "CustomerPayBillOnline"

type PushRequest struct {
	Phone       string // 2547XXXXXXXX
	Amount      int64  // whole shillings
	Reference   string
	Description string
}

type PushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// Accepted reports whether Daraja queued the prompt on the handset.
func (r *PushResponse) Accepted() bool {
	return r.ResponseCode == "0"
}

type QueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

// Push sends an STK push prompt to the customer's handset.
func (c *Client) Push(ctx context.Context, r PushRequest) (*PushResponse, error) {
	password, ts := c.password()
	body := map[string]string{
		"BusinessShortCode": c.cfg.ShortCode,
		"Password":          password,
		"Timestamp":         ts,
		"TransactionType":   transactionType,
		"Amount":            strconv.FormatInt(r.Amount, 10),
		"PartyA":            r.Phone,
		"PartyB":            c.cfg.ShortCode,
		"PhoneNumber":       r.Phone,
		"CallBackURL":       c.cfg.CallbackURL,
		"AccountReference":  truncate(r.Reference, 12),
		"TransactionDesc":   truncate(r.Description, 13),
	}

	var out PushResponse
	if err := c.post(ctx, pushPath, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Query asks Daraja for the outcome of an earlier push. While the customer
// has not answered, the returned error satisfies IsProcessing.
func (c *Client) Query(ctx context.Context, checkoutRequestID string) (*QueryResponse, error) {
	password, ts := c.password()
	body := map[string]string{
		"BusinessShortCode": c.cfg.ShortCode,
		"Password":          password,
		"Timestamp":         ts,
		"CheckoutRequestID": checkoutRequestID,
	}

	var out QueryResponse
	if err := c.post(ctx, queryPath, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
