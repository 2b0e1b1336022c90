package mpesa

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var ErrMalformedCallback = errors.New("mpesa: malformed callback")

// Callback is the stkCallback object Daraja posts to CallBackURL.
type Callback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  *struct {
		Item []CallbackItem `json:"Item"`
	} `json:"CallbackMetadata,omitempty"`
}

type CallbackItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value,omitempty"`
}

// ParseCallback decodes a callback body and checks it carries a correlation id.
func ParseCallback(body []byte) (*Callback, error) {
	var envelope struct {
		Body struct {
			StkCallback *Callback `json:"stkCallback"`
		} `json:"Body"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	cb := envelope.Body.StkCallback
	if cb == nil || cb.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: missing CheckoutRequestID", ErrMalformedCallback)
	}
	return cb, nil
}

func (c *Callback) Succeeded() bool {
	return c.ResultCode == 0
}

// Item returns the metadata value with the given name as a string.
func (c *Callback) Item(name string) string {
	if c.CallbackMetadata == nil {
		return ""
	}
	for _, it := range c.CallbackMetadata.Item {
		if it.Name != name {
			continue
		}
		switch v := it.Value.(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case nil:
			return ""
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

func (c *Callback) ReceiptNumber() string {
	return c.Item("MpesaReceiptNumber")
}
