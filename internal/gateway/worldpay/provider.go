package worldpay

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"log/slog"
	"time"

	"github.com/cardforge/connector/internal/gateway"
	"github.com/cardforge/connector/internal/gatewayaccount"
)

// ProviderName is the registry key for Worldpay.
const ProviderName = "worldpay"

// Provider is the Worldpay gateway adapter.
type Provider struct {
	client *gateway.Client
	url    string
	logger *slog.Logger
}

// New builds a Worldpay adapter pointed at the given order endpoint.
func New(client *gateway.Client, url string, logger *slog.Logger) *Provider {
	return &Provider{client: client, url: url, logger: logger}
}

// Name implements gateway.Provider.
func (p *Provider) Name() string { return ProviderName }

// Authorise submits a new order with card details.
func (p *Provider) Authorise(ctx context.Context, req gateway.AuthoriseRequest) gateway.Response {
	order := paymentService{
		Version:      paymentServiceVersion,
		MerchantCode: req.Account.Credential(gatewayaccount.CredentialMerchantID),
		Submit: &submitOrder{
			OrderCode:   req.TransactionID,
			Description: req.Description,
			Amount:      gbpAmount(req.Amount),
			Payment: &cardDetails{
				CardNumber:     req.Card.Number,
				ExpiryDate:     req.Card.ExpiryDate,
				CardholderName: req.Card.CardholderName,
				CVC:            req.Card.CVC,
			},
		},
	}

	rep, gerr := p.send(ctx, req.Account, order)
	if gerr != nil {
		return gateway.Response{Error: gerr}
	}
	if rep.OrderStatus == nil || rep.OrderStatus.Payment == nil {
		if rep.OrderStatus != nil && rep.OrderStatus.Error != nil {
			return errorResponse(rep.OrderStatus.Error)
		}
		if rep.Error != nil {
			return errorResponse(rep.Error)
		}
		return malformed("authorise reply missing order status")
	}

	lastEvent := rep.OrderStatus.Payment.LastEvent
	return gateway.Response{
		Success:        lastEvent == "AUTHORISED",
		TransactionID:  rep.OrderStatus.OrderCode,
		ProviderStatus: lastEvent,
	}
}

// Capture sends a capture modification for the order.
func (p *Provider) Capture(ctx context.Context, req gateway.CaptureRequest) gateway.Response {
	amt := gbpAmount(req.Amount)
	order := paymentService{
		Version:      paymentServiceVersion,
		MerchantCode: req.Account.Credential(gatewayaccount.CredentialMerchantID),
		Modify:       &orderModification{OrderCode: req.TransactionID, Capture: &amt},
	}

	rep, gerr := p.send(ctx, req.Account, order)
	if gerr != nil {
		return gateway.Response{Error: gerr}
	}
	if rep.OK != nil && rep.OK.CaptureReceived != nil {
		return gateway.Response{Success: true, TransactionID: rep.OK.CaptureReceived.OrderCode}
	}
	if rep.Error != nil {
		return errorResponse(rep.Error)
	}
	return malformed("capture reply missing acknowledgement")
}

// Refund sends a refund modification for the order.
func (p *Provider) Refund(ctx context.Context, req gateway.RefundRequest) gateway.Response {
	amt := gbpAmount(req.Amount)
	order := paymentService{
		Version:      paymentServiceVersion,
		MerchantCode: req.Account.Credential(gatewayaccount.CredentialMerchantID),
		Modify:       &orderModification{OrderCode: req.TransactionID, Refund: &amt},
	}

	rep, gerr := p.send(ctx, req.Account, order)
	if gerr != nil {
		return gateway.Response{Error: gerr}
	}
	if rep.OK != nil && rep.OK.RefundReceived != nil {
		return gateway.Response{
			Success:       true,
			TransactionID: rep.OK.RefundReceived.OrderCode,
			Reference:     rep.OK.RefundReceived.Reference,
		}
	}
	if rep.Error != nil {
		return errorResponse(rep.Error)
	}
	return malformed("refund reply missing acknowledgement")
}

// Cancel sends a cancel modification for the order.
func (p *Provider) Cancel(ctx context.Context, req gateway.CancelRequest) gateway.Response {
	order := paymentService{
		Version:      paymentServiceVersion,
		MerchantCode: req.Account.Credential(gatewayaccount.CredentialMerchantID),
		Modify:       &orderModification{OrderCode: req.TransactionID, Cancel: &struct{}{}},
	}

	rep, gerr := p.send(ctx, req.Account, order)
	if gerr != nil {
		return gateway.Response{Error: gerr}
	}
	if rep.OK != nil && rep.OK.CancelReceived != nil {
		return gateway.Response{Success: true, TransactionID: rep.OK.CancelReceived.OrderCode}
	}
	if rep.Error != nil {
		return errorResponse(rep.Error)
	}
	return malformed("cancel reply missing acknowledgement")
}

// ParseNotification decodes a Worldpay order status event document.
// Worldpay does not sign notification payloads.
func (p *Provider) ParseNotification(_ gatewayaccount.Account, payload []byte) ([]gateway.Notification, error) {
	var doc serviceReply
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode worldpay notification: %w", err)
	}
	if doc.Notify == nil {
		return nil, fmt.Errorf("worldpay notification missing notify element")
	}

	var out []gateway.Notification
	for _, ev := range doc.Notify.Events {
		if ev.Payment == nil {
			continue
		}
		out = append(out, gateway.Notification{
			TransactionID: ev.OrderCode,
			Reference:     ev.Reference,
			Status:        ev.Payment.LastEvent,
			EventDate:     ev.Date.time(),
		})
	}
	return out, nil
}

// VerifyNotificationCredentials implements gateway.Provider. Worldpay
// notifications are trusted at the network layer, not authenticated here.
func (p *Provider) VerifyNotificationCredentials(gatewayaccount.Account, string, string) bool {
	return true
}

// InterpretStatus maps a Worldpay event code through the status table.
func (p *Provider) InterpretStatus(n gateway.Notification) gateway.InterpretedStatus {
	return statusMapper.From(n.Status)
}

func (p *Provider) send(ctx context.Context, account gatewayaccount.Account, order paymentService) (*reply, *gateway.Error) {
	body, err := xml.Marshal(order)
	if err != nil {
		return nil, gateway.NewError(gateway.ErrorGeneric, "encode worldpay order", err)
	}
	body = append([]byte(xml.Header), body...)

	raw, gerr := p.client.Post(ctx, p.url, "application/xml", body, map[string]string{
		"Authorization": basicAuth(
			account.Credential(gatewayaccount.CredentialUsername),
			account.Credential(gatewayaccount.CredentialPassword),
		),
	})
	if gerr != nil {
		return nil, gerr
	}

	var doc serviceReply
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, gateway.NewError(gateway.ErrorMalformedResponse, "decode worldpay reply", err)
	}
	if doc.Reply == nil {
		return nil, gateway.NewError(gateway.ErrorMalformedResponse, "worldpay reply missing body", nil)
	}
	return doc.Reply, nil
}

func basicAuth(username, password string) string {
	token := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return "Basic " + token
}

func errorResponse(e *replyError) gateway.Response {
	return gateway.Response{
		Error: gateway.NewError(gateway.ErrorGeneric, fmt.Sprintf("worldpay error code %s: %s", e.Code, e.Message), nil),
	}
}

func malformed(msg string) gateway.Response {
	return gateway.Response{Error: gateway.NewError(gateway.ErrorMalformedResponse, msg, nil)}
}

func (d notifyDate) time() time.Time {
	if d.Year == 0 {
		return time.Time{}
	}
	return time.Date(d.Year, time.Month(d.Month), d.DayOfMonth, 0, 0, 0, 0, time.UTC)
}
