package mpesawebhook

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/retailops-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

const transactionDateLayout = "20060102150405"

// nairobi is fixed at UTC+3 without DST; transaction dates carry no zone.
var nairobi = time.FixedZone("EAT", 3*60*60)

type envelope struct {
	Body struct {
		STKCallback *stkCallback `json:"stkCallback"`
	} `json:"Body"`
}

type stkCallback struct {
	MerchantRequestID string          `json:"MerchantRequestID"`
	CheckoutRequestID string          `json:"CheckoutRequestID"`
	ResultCode        json.RawMessage `json:"ResultCode"`
	ResultDesc        string          `json:"ResultDesc"`
	CallbackMetadata  *struct {
		Item []metadataItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

type metadataItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

// ParseCallback decodes the gateway's Body.stkCallback envelope. Metadata is
// present only on successful payments.
func ParseCallback(raw []byte) (payments.Callback, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return payments.Callback{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed callback body")
	}
	stk := env.Body.STKCallback
	if stk == nil || strings.TrimSpace(stk.CheckoutRequestID) == "" {
		return payments.Callback{}, pkgerrors.New(pkgerrors.CodeValidation, "callback missing checkout request id")
	}
	code, err := parseInt(stk.ResultCode)
	if err != nil {
		return payments.Callback{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "callback result code is not a number")
	}

	cb := payments.Callback{
		MerchantRequestID: stk.MerchantRequestID,
		CheckoutRequestID: stk.CheckoutRequestID,
		ResultCode:        int(code),
		ResultDesc:        stk.ResultDesc,
	}
	if stk.CallbackMetadata == nil {
		return cb, nil
	}
	for _, item := range stk.CallbackMetadata.Item {
		value := scalar(item.Value)
		switch item.Name {
		case "MpesaReceiptNumber":
			cb.ReceiptNumber = value
		case "Amount":
			if amount, err := decimal.NewFromString(value); err == nil {
				cb.AmountCents = amount.Shift(2).Round(0).IntPart()
			}
		case "PhoneNumber":
			cb.Phone = value
		case "TransactionDate":
			if at, err := time.ParseInLocation(transactionDateLayout, value, nairobi); err == nil {
				utc := at.UTC()
				cb.TransactionDate = &utc
			}
		}
	}
	return cb, nil
}

// scalar renders a JSON string or number as its plain text.
func scalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func parseInt(raw json.RawMessage) (int64, error) {
	return strconv.ParseInt(scalar(raw), 10, 64)
}
