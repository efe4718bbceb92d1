package testutil

import (
	"context"
	"fmt"
	"sync"

	"acmportal/gateway"
	"acmportal/notify"
	"acmportal/videoroom"
)

// FakeGateway is a scriptable payment gateway.
type FakeGateway struct {
	mu sync.Mutex

	Merchant    bool
	RequestErr  error
	RequestCode int
	VerifyErr   error
	VerifyCodes map[string]int
	Unverified  []string
	nextID      int
	Requests    []gateway.PaymentRequest
	VerifyCalls []string
	RefIDPrefix string
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{Merchant: true, RequestCode: gateway.SuccessCode, VerifyCodes: map[string]int{}, RefIDPrefix: "REF"}
}

var _ gateway.Gateway = (*FakeGateway)(nil)

func (g *FakeGateway) Name() string { return "fake" }

func (g *FakeGateway) Configured() bool { return g.Merchant }

func (g *FakeGateway) StartPayURL(authority string) string {
	return "https://pay.test/pg/StartPay/" + authority
}

func (g *FakeGateway) RequestPayment(_ context.Context, req gateway.PaymentRequest) (gateway.RequestResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Requests = append(g.Requests, req)
	if g.RequestErr != nil {
		return gateway.RequestResult{}, g.RequestErr
	}
	if g.RequestCode != gateway.SuccessCode {
		return gateway.RequestResult{Code: g.RequestCode, Message: "refused"}, nil
	}
	g.nextID++
	return gateway.RequestResult{
		Code:      gateway.SuccessCode,
		Message:   "Success",
		Authority: fmt.Sprintf("A%05d", g.nextID),
		FeeType:   "Merchant",
		Fee:       10,
	}, nil
}

// VerifyPayment succeeds unless a code is scripted for the authority.
func (g *FakeGateway) VerifyPayment(_ context.Context, _ int64, authority string) (gateway.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.VerifyCalls = append(g.VerifyCalls, authority)
	if g.VerifyErr != nil {
		return gateway.VerifyResult{}, g.VerifyErr
	}
	code, ok := g.VerifyCodes[authority]
	if !ok {
		code = gateway.SuccessCode
	}
	if code != gateway.SuccessCode {
		return gateway.VerifyResult{Code: code, Message: "failed"}, nil
	}
	return gateway.VerifyResult{
		Code:     code,
		Message:  "Verified",
		RefID:    g.RefIDPrefix + authority,
		CardPan:  "6037******1234",
		CardHash: "hash-" + authority,
	}, nil
}

func (g *FakeGateway) ListUnverified(context.Context) []gateway.UnverifiedPayment {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]gateway.UnverifiedPayment, 0, len(g.Unverified))
	for _, a := range g.Unverified {
		out = append(out, gateway.UnverifiedPayment{Authority: a})
	}
	return out
}

func (g *FakeGateway) RequestCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Requests)
}

func (g *FakeGateway) VerifyCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.VerifyCalls)
}

// RecordingNotifier keeps every message it is given.
type RecordingNotifier struct {
	mu       sync.Mutex
	Messages []notify.Message
}

func (n *RecordingNotifier) Notify(_ context.Context, msgs ...notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Messages = append(n.Messages, msgs...)
	return nil
}

// WithStatus returns the recorded messages carrying the status code.
func (n *RecordingNotifier) WithStatus(code string) []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Message
	for _, m := range n.Messages {
		if m.Status() == code {
			out = append(out, m)
		}
	}
	return out
}

func (n *RecordingNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Messages = nil
}

// FakeVideoRoom returns a fixed link and records requests.
type FakeVideoRoom struct {
	Link     string
	Err      error
	Requests []videoroom.JoinRequest
}

func (f *FakeVideoRoom) CreateJoinLink(_ context.Context, req videoroom.JoinRequest) (string, error) {
	f.Requests = append(f.Requests, req)
	return f.Link, f.Err
}
