package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"acmportal/config"

	"github.com/gofiber/fiber/v2"
)

const defaultDescription = "ACM purchase"

// Zarinpal is the v4 REST client.
type Zarinpal struct {
	merchantID        string
	baseURL           string
	timeout           time.Duration
	unverifiedTimeout time.Duration
}

func NewZarinpal(cfg config.Payment) *Zarinpal {
	return &Zarinpal{
		merchantID:        cfg.MerchantID,
		baseURL:           strings.TrimRight(cfg.BaseURL, "/"),
		timeout:           cfg.Timeout,
		unverifiedTimeout: cfg.UnverifiedTimeout,
	}
}

func (z *Zarinpal) Name() string { return "zarinpal" }

func (z *Zarinpal) Configured() bool { return z.merchantID != "" }

func (z *Zarinpal) StartPayURL(authority string) string {
	return z.baseURL + "/pg/StartPay/" + authority
}

// envelope is the shape of every v4 response. Data is an object on
// success and an empty array on failure, so it is decoded lazily.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type resultBody struct {
	Code        int                 `json:"code"`
	Message     string              `json:"message"`
	Authority   string              `json:"authority"`
	FeeType     string              `json:"fee_type"`
	Fee         int64               `json:"fee"`
	RefID       json.Number         `json:"ref_id"`
	CardPan     string              `json:"card_pan"`
	CardHash    string              `json:"card_hash"`
	Authorities []UnverifiedPayment `json:"authorities"`
}

func (e envelope) result() (resultBody, error) {
	var out resultBody
	if body := bytes.TrimSpace(e.Data); len(body) > 0 && body[0] == '{' {
		if err := json.Unmarshal(body, &out); err != nil {
			return out, fmt.Errorf("decode data: %w", err)
		}
		return out, nil
	}
	if body := bytes.TrimSpace(e.Errors); len(body) > 0 && body[0] == '{' {
		if err := json.Unmarshal(body, &out); err != nil {
			return out, fmt.Errorf("decode errors: %w", err)
		}
		return out, nil
	}
	return out, fmt.Errorf("empty gateway response")
}

func (z *Zarinpal) post(ctx context.Context, path string, payload interface{}, timeout time.Duration) (resultBody, error) {
	if err := ctx.Err(); err != nil {
		return resultBody{}, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	agent := fiber.Post(z.baseURL + path)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	agent.JSON(payload)
	agent.Timeout(timeout)

	var env envelope
	status, _, errs := agent.Struct(&env)
	if len(errs) > 0 {
		return resultBody{}, fmt.Errorf("zarinpal %s: %w", path, errs[0])
	}
	res, err := env.result()
	if err != nil {
		return resultBody{}, fmt.Errorf("zarinpal %s: %w", path, err)
	}
	// v4 reports validation failures as 4xx with an errors object.
	if status >= fiber.StatusInternalServerError || (status >= fiber.StatusBadRequest && res.Code == 0) {
		return resultBody{}, fmt.Errorf("zarinpal %s: http status %d", path, status)
	}
	return res, nil
}

func (z *Zarinpal) RequestPayment(ctx context.Context, req PaymentRequest) (RequestResult, error) {
	description := req.Description
	if description == "" {
		description = defaultDescription
	}
	metadata := map[string]string{"email": req.Email}
	if req.Mobile != "" {
		metadata["mobile"] = req.Mobile
	}

	res, err := z.post(ctx, "/pg/v4/payment/request.json", fiber.Map{
		"merchant_id":  z.merchantID,
		"amount":       req.Amount,
		"callback_url": req.CallbackURL,
		"description":  description,
		"metadata":     metadata,
	}, z.timeout)
	if err != nil {
		return RequestResult{}, err
	}
	return RequestResult{
		Code:      res.Code,
		Message:   res.Message,
		Authority: res.Authority,
		FeeType:   res.FeeType,
		Fee:       res.Fee,
	}, nil
}

func (z *Zarinpal) VerifyPayment(ctx context.Context, amount int64, authority string) (VerifyResult, error) {
	res, err := z.post(ctx, "/pg/v4/payment/verify.json", fiber.Map{
		"merchant_id": z.merchantID,
		"amount":      amount,
		"authority":   authority,
	}, z.timeout)
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{
		Code:     res.Code,
		Message:  res.Message,
		RefID:    res.RefID.String(),
		CardPan:  res.CardPan,
		CardHash: res.CardHash,
	}, nil
}

func (z *Zarinpal) ListUnverified(ctx context.Context) []UnverifiedPayment {
	res, err := z.post(ctx, "/pg/v4/payment/unVerified.json", fiber.Map{
		"merchant_id": z.merchantID,
	}, z.unverifiedTimeout)
	if err != nil {
		log.Printf("⚠️ Unverified list unavailable: %v", err)
		return []UnverifiedPayment{}
	}
	if res.Code != SuccessCode || res.Authorities == nil {
		return []UnverifiedPayment{}
	}
	return res.Authorities
}
