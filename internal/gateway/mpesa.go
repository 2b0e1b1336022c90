package gateway

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourdudeken/eventtik/internal/metrics"
	"github.com/yourdudeken/eventtik/pkg/mpesa"
)

// stkClient is the part of *mpesa.Client the adapter uses.
type stkClient interface {
	Push(ctx context.Context, r mpesa.PushRequest) (*mpesa.PushResponse, error)
	Query(ctx context.Context, checkoutRequestID string) (*mpesa.QueryResponse, error)
}

type Mpesa struct {
	client stkClient
}

func NewMpesa(client stkClient) *Mpesa {
	return &Mpesa{client: client}
}

func (m *Mpesa) Mode() Mode { return ModeLive }

func (m *Mpesa) Initiate(ctx context.Context, req PaymentRequest) (*Acceptance, error) {
	defer metrics.ObserveGateway("initiate", time.Now())

	resp, err := m.client.Push(ctx, mpesa.PushRequest{
		Phone:       req.Phone,
		Amount:      wholeShillings(req.Amount),
		Reference:   req.Reference,
		Description: req.Description,
	})
	if err != nil {
		var apiErr *mpesa.APIError
		if errors.As(err, &apiErr) {
			return nil, &RejectedError{Code: apiErr.Code, Reason: apiErr.Message}
		}
		return nil, &RejectedError{Code: "unreachable", Reason: err.Error()}
	}
	if !resp.Accepted() {
		return nil, &RejectedError{Code: resp.ResponseCode, Reason: resp.ResponseDescription}
	}

	return &Acceptance{
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
	}, nil
}

func (m *Mpesa) Query(ctx context.Context, checkoutRequestID string) (*Result, error) {
	defer metrics.ObserveGateway("query", time.Now())

	resp, err := m.client.Query(ctx, checkoutRequestID)
	if err != nil {
		if mpesa.IsProcessing(err) {
			return &Result{CheckoutRequestID: checkoutRequestID, Outcome: OutcomePending}, nil
		}
		return nil, err
	}

	res := &Result{
		CheckoutRequestID: checkoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		Code:              resp.ResultCode,
		Reason:            resp.ResultDesc,
	}
	switch resp.ResultCode {
	case "":
		res.Outcome = OutcomePending
	case "0":
		// the query API does not return the receipt number
		res.Outcome = OutcomeSucceeded
	default:
		res.Outcome = OutcomeFailed
	}
	return res, nil
}

// FromCallback converts a Daraja callback into a Result.
func FromCallback(cb *mpesa.Callback) Result {
	res := Result{
		CheckoutRequestID: cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		Reason:            cb.ResultDesc,
		Outcome:           OutcomeFailed,
	}
	res.Code = strconv.Itoa(cb.ResultCode)
	if cb.Succeeded() {
		res.Outcome = OutcomeSucceeded
		res.TransactionID = cb.ReceiptNumber()
	}
	return res
}

// wholeShillings rounds half up; Daraja rejects fractional amounts.
func wholeShillings(amount decimal.Decimal) int64 {
	return amount.Round(0).IntPart()
}
