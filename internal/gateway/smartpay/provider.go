// Package smartpay implements the Smartpay adapter. Smartpay exposes a JSON
// API keyed by merchant account, reports asynchronous events through JSON
// notification batches, and distinguishes outcomes with a separate success
// flag next to each event code.
package smartpay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/cardforge/connector/internal/gateway"
	"github.com/cardforge/connector/internal/gatewayaccount"
)

// ProviderName is the registry key for Smartpay.
const ProviderName = "smartpay"

// Provider is the Smartpay gateway adapter.
type Provider struct {
	client *gateway.Client
	url    string
	logger *slog.Logger
}

// New builds a Smartpay adapter pointed at the given API base URL.
func New(client *gateway.Client, url string, logger *slog.Logger) *Provider {
	return &Provider{client: client, url: url, logger: logger}
}

// Name implements gateway.Provider.
func (p *Provider) Name() string { return ProviderName }

type paymentRequest struct {
	MerchantAccount string      `json:"merchantAccount"`
	Reference       string      `json:"reference,omitempty"`
	OriginalRef     string      `json:"originalReference,omitempty"`
	Amount          *jsonAmount `json:"modificationAmount,omitempty"`
	Payment         *jsonCard   `json:"card,omitempty"`
	PaymentAmount   *jsonAmount `json:"amount,omitempty"`
}

type jsonAmount struct {
	Currency string `json:"currency"`
	Value    int64  `json:"value"`
}

type jsonCard struct {
	Number     string `json:"number"`
	ExpiryDate string `json:"expiryDate"`
	CVC        string `json:"cvc"`
	HolderName string `json:"holderName"`
}

type paymentResponse struct {
	PspReference  string `json:"pspReference"`
	ResultCode    string `json:"resultCode"`
	Response      string `json:"response"`
	RefusalReason string `json:"refusalReason"`
}

// Authorise submits a payment with card details.
func (p *Provider) Authorise(ctx context.Context, req gateway.AuthoriseRequest) gateway.Response {
	body := paymentRequest{
		MerchantAccount: req.Account.Credential(gatewayaccount.CredentialMerchantID),
		Reference:       req.TransactionID,
		PaymentAmount:   &jsonAmount{Currency: "GBP", Value: req.Amount},
		Payment: &jsonCard{
			Number:     req.Card.Number,
			ExpiryDate: req.Card.ExpiryDate,
			CVC:        req.Card.CVC,
			HolderName: req.Card.CardholderName,
		},
	}
	resp, gerr := p.send(ctx, req.Account, "/authorise", body)
	if gerr != nil {
		return gateway.Response{Error: gerr}
	}
	return gateway.Response{
		Success:        resp.ResultCode == "Authorised",
		TransactionID:  resp.PspReference,
		ProviderStatus: resp.ResultCode,
	}
}

// Capture requests settlement of an authorised payment.
func (p *Provider) Capture(ctx context.Context, req gateway.CaptureRequest) gateway.Response {
	body := paymentRequest{
		MerchantAccount: req.Account.Credential(gatewayaccount.CredentialMerchantID),
		OriginalRef:     req.TransactionID,
		Amount:          &jsonAmount{Currency: "GBP", Value: req.Amount},
	}
	resp, gerr := p.send(ctx, req.Account, "/capture", body)
	if gerr != nil {
		return gateway.Response{Error: gerr}
	}
	return gateway.Response{
		Success:        resp.Response == "[capture-received]",
		TransactionID:  resp.PspReference,
		ProviderStatus: resp.Response,
	}
}

// Refund requests a (partial) refund of a captured payment.
func (p *Provider) Refund(ctx context.Context, req gateway.RefundRequest) gateway.Response {
	body := paymentRequest{
		MerchantAccount: req.Account.Credential(gatewayaccount.CredentialMerchantID),
		OriginalRef:     req.TransactionID,
		Reference:       req.Reference,
		Amount:          &jsonAmount{Currency: "GBP", Value: req.Amount},
	}
	resp, gerr := p.send(ctx, req.Account, "/refund", body)
	if gerr != nil {
		return gateway.Response{Error: gerr}
	}
	return gateway.Response{
		Success:        resp.Response == "[refund-received]",
		TransactionID:  resp.PspReference,
		Reference:      resp.PspReference,
		ProviderStatus: resp.Response,
	}
}

// Cancel voids an authorised payment.
func (p *Provider) Cancel(ctx context.Context, req gateway.CancelRequest) gateway.Response {
	body := paymentRequest{
		MerchantAccount: req.Account.Credential(gatewayaccount.CredentialMerchantID),
		OriginalRef:     req.TransactionID,
	}
	resp, gerr := p.send(ctx, req.Account, "/cancel", body)
	if gerr != nil {
		return gateway.Response{Error: gerr}
	}
	return gateway.Response{
		Success:        resp.Response == "[cancel-received]",
		TransactionID:  resp.PspReference,
		ProviderStatus: resp.Response,
	}
}

type notificationItem struct {
	NotificationRequestItem struct {
		EventCode         string `json:"eventCode"`
		Success           string `json:"success"`
		OriginalReference string `json:"originalReference"`
		PspReference      string `json:"pspReference"`
		EventDate         string `json:"eventDate"`
	} `json:"NotificationRequestItem"`
}

type notificationBatch struct {
	NotificationItems []notificationItem `json:"notificationItems"`
}

// ParseNotification decodes a Smartpay notification batch. The authorisation
// event carries the original payment reference in pspReference; modification
// events reference it via originalReference.
func (p *Provider) ParseNotification(_ gatewayaccount.Account, payload []byte) ([]gateway.Notification, error) {
	var batch notificationBatch
	if err := json.Unmarshal(payload, &batch); err != nil {
		return nil, fmt.Errorf("decode smartpay notification: %w", err)
	}

	var out []gateway.Notification
	for _, item := range batch.NotificationItems {
		n := item.NotificationRequestItem
		transactionID := n.OriginalReference
		if transactionID == "" {
			transactionID = n.PspReference
		}
		eventDate, _ := time.Parse(time.RFC3339, n.EventDate)
		out = append(out, gateway.Notification{
			TransactionID: transactionID,
			Reference:     n.PspReference,
			Status:        n.EventCode,
			Success:       n.Success == "true",
			HasSuccess:    true,
			EventDate:     eventDate,
		})
	}
	return out, nil
}

// VerifyNotificationCredentials checks the basic-auth credentials presented
// on the notification endpoint against the bcrypt hash stored with the
// account.
func (p *Provider) VerifyNotificationCredentials(account gatewayaccount.Account, username, password string) bool {
	wantUser := account.Credential(gatewayaccount.CredentialNotificationUsername)
	hash := account.Credential(gatewayaccount.CredentialNotificationPasswordHash)
	if wantUser == "" || hash == "" {
		return false
	}
	if username != wantUser {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// InterpretStatus maps the (event code, success) pair through the status
// table.
func (p *Provider) InterpretStatus(n gateway.Notification) gateway.InterpretedStatus {
	return statusMapper.From(statusKey{Code: n.Status, Success: n.Success})
}

func (p *Provider) send(ctx context.Context, account gatewayaccount.Account, path string, body paymentRequest) (*paymentResponse, *gateway.Error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, gateway.NewError(gateway.ErrorGeneric, "encode smartpay request", err)
	}

	token := base64.StdEncoding.EncodeToString([]byte(
		account.Credential(gatewayaccount.CredentialUsername) + ":" + account.Credential(gatewayaccount.CredentialPassword)))

	respBody, gerr := p.client.Post(ctx, p.url+path, "application/json", raw, map[string]string{
		"Authorization": "Basic " + token,
	})
	if gerr != nil {
		return nil, gerr
	}

	var resp paymentResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, gateway.NewError(gateway.ErrorMalformedResponse, "decode smartpay response", err)
	}
	return &resp, nil
}
