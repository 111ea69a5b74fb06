// Package worldpay implements the Worldpay adapter. Worldpay speaks an XML
// order protocol: submits and modifications go up as paymentService
// documents, replies and asynchronous order status notifications come back
// the same way.
package worldpay

import "encoding/xml"

const paymentServiceVersion = "1.4"

type amount struct {
	Value        int64  `xml:"value,attr"`
	CurrencyCode string `xml:"currencyCode,attr"`
	Exponent     string `xml:"exponent,attr"`
}

func gbpAmount(value int64) amount {
	return amount{Value: value, CurrencyCode: "GBP", Exponent: "2"}
}

type cardDetails struct {
	XMLName        xml.Name `xml:"CARD-SSL"`
	CardNumber     string   `xml:"cardNumber"`
	ExpiryDate     string   `xml:"expiryDate>date"`
	CardholderName string   `xml:"cardHolderName"`
	CVC            string   `xml:"cvc"`
}

type submitOrder struct {
	OrderCode   string       `xml:"orderCode,attr"`
	Description string       `xml:"description"`
	Amount      amount       `xml:"amount"`
	Payment     *cardDetails `xml:"paymentDetails>CARD-SSL"`
}

type orderModification struct {
	OrderCode string    `xml:"orderCode,attr"`
	Capture   *amount   `xml:"capture>amount,omitempty"`
	Refund    *amount   `xml:"refund>amount,omitempty"`
	Cancel    *struct{} `xml:"cancel,omitempty"`
}

type paymentService struct {
	XMLName      xml.Name           `xml:"paymentService"`
	Version      string             `xml:"version,attr"`
	MerchantCode string             `xml:"merchantCode,attr"`
	Submit       *submitOrder       `xml:"submit>order,omitempty"`
	Modify       *orderModification `xml:"modify>orderModification,omitempty"`
}

type replyPayment struct {
	LastEvent string `xml:"lastEvent"`
}

type replyError struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

type orderStatus struct {
	OrderCode string        `xml:"orderCode,attr"`
	Payment   *replyPayment `xml:"payment"`
	Error     *replyError   `xml:"error"`
}

type okReply struct {
	CaptureReceived *struct {
		OrderCode string `xml:"orderCode,attr"`
	} `xml:"captureReceived"`
	RefundReceived *struct {
		OrderCode string `xml:"orderCode,attr"`
		Reference string `xml:"reference,attr"`
	} `xml:"refundReceived"`
	CancelReceived *struct {
		OrderCode string `xml:"orderCode,attr"`
	} `xml:"cancelReceived"`
}

type reply struct {
	OrderStatus *orderStatus `xml:"orderStatus"`
	OK          *okReply     `xml:"ok"`
	Error       *replyError  `xml:"error"`
}

type serviceReply struct {
	XMLName xml.Name `xml:"paymentService"`
	Reply   *reply   `xml:"reply"`
	Notify  *notify  `xml:"notify"`
}

type orderStatusEvent struct {
	OrderCode string        `xml:"orderCode,attr"`
	Payment   *replyPayment `xml:"payment"`
	Reference string        `xml:"reference"`
	Date      notifyDate    `xml:"journal>bookingDate>date"`
}

type notifyDate struct {
	DayOfMonth int `xml:"dayOfMonth,attr"`
	Month      int `xml:"month,attr"`
	Year       int `xml:"year,attr"`
}

type notify struct {
	Events []orderStatusEvent `xml:"orderStatusEvent"`
}
