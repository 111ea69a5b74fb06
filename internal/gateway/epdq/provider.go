// Package epdq implements the ePDQ adapter. ePDQ speaks
// application/x-www-form-urlencoded in both directions and authenticates
// payloads with a SHASIGN digest computed over the alphabetically sorted
// parameters and a shared passphrase.
package epdq

import (
	"context"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/cardforge/connector/internal/gateway"
	"github.com/cardforge/connector/internal/gatewayaccount"
)

// ProviderName is the registry key for ePDQ.
const ProviderName = "epdq"

// Maintenance operation codes.
const (
	operationCapture = "SAS" // settle and close
	operationRefund  = "RFD"
	operationCancel  = "DES" // delete authorisation
)

// Provider is the ePDQ gateway adapter.
type Provider struct {
	client *gateway.Client
	url    string
	logger *slog.Logger
}

// New builds an ePDQ adapter pointed at the given maintenance endpoint.
func New(client *gateway.Client, url string, logger *slog.Logger) *Provider {
	return &Provider{client: client, url: url, logger: logger}
}

// Name implements gateway.Provider.
func (p *Provider) Name() string { return ProviderName }

// Authorise submits a new order with card details.
func (p *Provider) Authorise(ctx context.Context, req gateway.AuthoriseRequest) gateway.Response {
	params := map[string]string{
		"PSPID":     req.Account.Credential(gatewayaccount.CredentialMerchantID),
		"USERID":    req.Account.Credential(gatewayaccount.CredentialUsername),
		"PSWD":      req.Account.Credential(gatewayaccount.CredentialPassword),
		"ORDERID":   req.TransactionID,
		"AMOUNT":    strconv.FormatInt(req.Amount, 10),
		"CURRENCY":  "GBP",
		"CARDNO":    req.Card.Number,
		"ED":        req.Card.ExpiryDate,
		"CVC":       req.Card.CVC,
		"CN":        req.Card.CardholderName,
		"COM":       req.Description,
		"OPERATION": "RES",
	}
	return p.send(ctx, req.Account, params, "5")
}

// Capture settles an authorised order.
func (p *Provider) Capture(ctx context.Context, req gateway.CaptureRequest) gateway.Response {
	return p.maintenance(ctx, req.Account, req.TransactionID, operationCapture, req.Amount, "91")
}

// Refund returns funds on a captured order.
func (p *Provider) Refund(ctx context.Context, req gateway.RefundRequest) gateway.Response {
	return p.maintenance(ctx, req.Account, req.TransactionID, operationRefund, req.Amount, "81")
}

// Cancel deletes an authorisation.
func (p *Provider) Cancel(ctx context.Context, req gateway.CancelRequest) gateway.Response {
	return p.maintenance(ctx, req.Account, req.TransactionID, operationCancel, 0, "61")
}

func (p *Provider) maintenance(ctx context.Context, account gatewayaccount.Account, transactionID, operation string, amount int64, wantStatus string) gateway.Response {
	params := map[string]string{
		"PSPID":     account.Credential(gatewayaccount.CredentialMerchantID),
		"USERID":    account.Credential(gatewayaccount.CredentialUsername),
		"PSWD":      account.Credential(gatewayaccount.CredentialPassword),
		"PAYID":     transactionID,
		"OPERATION": operation,
	}
	if amount > 0 {
		params["AMOUNT"] = strconv.FormatInt(amount, 10)
	}
	return p.send(ctx, account, params, wantStatus)
}

func (p *Provider) send(ctx context.Context, account gatewayaccount.Account, params map[string]string, wantStatus string) gateway.Response {
	passphrase := account.Credential(gatewayaccount.CredentialShaInPassphrase)
	params["SHASIGN"] = shaSign(params, passphrase)

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	raw, gerr := p.client.Post(ctx, p.url, "application/x-www-form-urlencoded", []byte(form.Encode()), nil)
	if gerr != nil {
		return gateway.Response{Error: gerr}
	}

	reply, err := url.ParseQuery(strings.TrimSpace(string(raw)))
	if err != nil {
		return gateway.Response{Error: gateway.NewError(gateway.ErrorMalformedResponse, "decode epdq reply", err)}
	}

	statusCode := reply.Get("STATUS")
	payID := reply.Get("PAYID")
	if statusCode == "" {
		return gateway.Response{Error: gateway.NewError(gateway.ErrorMalformedResponse, "epdq reply missing STATUS", nil)}
	}

	resp := gateway.Response{
		Success:        statusCode == wantStatus,
		TransactionID:  payID,
		Reference:      reference(payID, reply.Get("PAYIDSUB")),
		ProviderStatus: statusCode,
	}
	if !resp.Success && reply.Get("NCERROR") != "" && reply.Get("NCERROR") != "0" {
		resp.Error = gateway.NewError(gateway.ErrorGeneric,
			fmt.Sprintf("epdq error %s: %s", reply.Get("NCERROR"), reply.Get("NCERRORPLUS")), nil)
	}
	return resp
}

// ParseNotification decodes a form-encoded ePDQ notification and verifies
// its SHASIGN against the account's passphrase before trusting it.
func (p *Provider) ParseNotification(account gatewayaccount.Account, payload []byte) ([]gateway.Notification, error) {
	values, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, fmt.Errorf("decode epdq notification payload: %w", err)
	}

	params := make(map[string]string, len(values))
	for k := range values {
		params[strings.ToUpper(k)] = values.Get(k)
	}
	received := params["SHASIGN"]
	delete(params, "SHASIGN")

	passphrase := account.Credential(gatewayaccount.CredentialShaInPassphrase)
	expected := shaSign(params, passphrase)
	if subtle.ConstantTimeCompare([]byte(strings.ToUpper(received)), []byte(expected)) != 1 {
		return nil, fmt.Errorf("epdq notification SHASIGN verification failed")
	}

	return []gateway.Notification{{
		TransactionID: params["PAYID"],
		Reference:     reference(params["PAYID"], params["PAYIDSUB"]),
		Status:        params["STATUS"],
	}}, nil
}

// VerifyNotificationCredentials implements gateway.Provider. Authenticity is
// carried by the SHASIGN inside the payload, not by endpoint credentials.
func (p *Provider) VerifyNotificationCredentials(gatewayaccount.Account, string, string) bool {
	return true
}

// InterpretStatus maps an ePDQ numeric status code through the status table.
func (p *Provider) InterpretStatus(n gateway.Notification) gateway.InterpretedStatus {
	return statusMapper.From(n.Status)
}

// shaSign digests KEY=value pairs sorted by key, each followed by the
// passphrase, with SHA-1 as ePDQ requires. Empty values are excluded.
func shaSign(params map[string]string, passphrase string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
		b.WriteString(passphrase)
	}

	sum := sha1.Sum([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func reference(payID, payIDSub string) string {
	if payID == "" || payIDSub == "" {
		return payID
	}
	return payID + "/" + payIDSub
}
