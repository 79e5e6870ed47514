package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"storefront-service/internal/config"
)

// SlipResult carries the fields parsed from a verified payment slip.
type SlipResult struct {
	Amount       float64
	TransRef     string
	SenderBank   string
	SenderName   string
	ReceiverBank string
	DateTime     string
}

// SlipVerifier lets the top-up flow swap the real Slip2Go client for a fake
// in tests.
type SlipVerifier interface {
	Verify(ctx context.Context, image []byte, filename string) (*SlipResult, error)
}

// Slip2GoService uploads payment-slip images to Slip2Go for OCR and
// verification. Match conditions pin the receiver to the shop's account and
// delegate duplicate detection to the provider; the topup table's unique slip
// reference is the local backstop.
type Slip2GoService struct {
	Cfg    *config.Config
	Log    *zap.Logger
	client *resty.Client
}

func NewSlip2GoService(cfg *config.Config, log *zap.Logger) *Slip2GoService {
	return &Slip2GoService{
		Cfg:    cfg,
		Log:    log,
		client: resty.New().SetBaseURL(cfg.Slip2GoBaseURL),
	}
}

type slip2goResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Amount   float64 `json:"amount"`
		TransRef string  `json:"transRef"`
		DateTime string  `json:"dateTime"`
		Sender   struct {
			Bank        string `json:"bank"`
			AccountName string `json:"accountName"`
		} `json:"sender"`
		Receiver struct {
			Bank string `json:"bank"`
		} `json:"receiver"`
	} `json:"data"`
}

func (s *Slip2GoService) matchConditions() map[string]interface{} {
	return map[string]interface{}{
		"checkDuplicate": true,
		"checkReceiver": []map[string]string{
			{
				"accountType":   s.Cfg.ReceiverAccountType,
				"accountNumber": s.Cfg.ReceiverAccountNumber,
				"accountNameTH": s.Cfg.ReceiverNameTH,
				"accountNameEN": s.Cfg.ReceiverNameEN,
			},
		},
	}
}

// Verify uploads the image plus match conditions and returns the parsed slip
// fields. A rejected slip (wrong receiver, duplicate, unreadable) comes back
// as a ProviderError with the service's message.
func (s *Slip2GoService) Verify(ctx context.Context, image []byte, filename string) (*SlipResult, error) {
	payload, err := json.Marshal(s.matchConditions())
	if err != nil {
		return nil, err
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(image)).
		SetMultipartField("payload", "", "application/json", bytes.NewReader(payload)).
		SetHeader("Authorization", "Bearer "+s.Cfg.Slip2GoToken).
		Post("/api/verify-slip/qr-image")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("slip2go request status: %d", resp.StatusCode())
	}

	var body slip2goResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, err
	}

	if !body.Success {
		msg := body.Message
		if msg == "" {
			msg = "ตรวจสอบสลิปไม่สำเร็จ"
		}
		return nil, &ProviderError{Provider: "slip2go", Code: "rejected", Message: msg}
	}
	if body.Data.TransRef == "" {
		return nil, &ProviderError{Provider: "slip2go", Code: "no_reference", Message: "สลิปไม่มีหมายเลขอ้างอิง"}
	}

	return &SlipResult{
		Amount:       body.Data.Amount,
		TransRef:     body.Data.TransRef,
		SenderBank:   body.Data.Sender.Bank,
		SenderName:   body.Data.Sender.AccountName,
		ReceiverBank: body.Data.Receiver.Bank,
		DateTime:     body.Data.DateTime,
	}, nil
}
