package gateway

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Stub accepts every request and verifies every authority it issued.
// It is meant for local development without merchant credentials.
type Stub struct {
	baseURL string

	mu     sync.Mutex
	issued map[string]int64
}

func NewStub(baseURL string) *Stub {
	return &Stub{baseURL: strings.TrimRight(baseURL, "/"), issued: map[string]int64{}}
}

func (s *Stub) Name() string { return "stub" }

func (s *Stub) Configured() bool { return true }

func (s *Stub) StartPayURL(authority string) string {
	return s.baseURL + "/pg/StartPay/" + authority
}

func (s *Stub) RequestPayment(_ context.Context, req PaymentRequest) (RequestResult, error) {
	authority := "S" + strings.ReplaceAll(uuid.NewString(), "-", "")
	s.mu.Lock()
	s.issued[authority] = req.Amount
	s.mu.Unlock()
	return RequestResult{Code: SuccessCode, Message: "Success", Authority: authority, FeeType: "Merchant"}, nil
}

func (s *Stub) VerifyPayment(_ context.Context, amount int64, authority string) (VerifyResult, error) {
	s.mu.Lock()
	issued, ok := s.issued[authority]
	if ok && issued == amount {
		delete(s.issued, authority)
	}
	s.mu.Unlock()

	if !ok || issued != amount {
		return VerifyResult{Code: -51, Message: "Session is not valid"}, nil
	}
	return VerifyResult{Code: SuccessCode, Message: "Verified", RefID: uuid.NewString()[:8], CardPan: "502229******5995"}, nil
}

func (s *Stub) ListUnverified(context.Context) []UnverifiedPayment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]UnverifiedPayment, 0, len(s.issued))
	for authority, amount := range s.issued {
		out = append(out, UnverifiedPayment{Authority: authority, Amount: amount})
	}
	return out
}
