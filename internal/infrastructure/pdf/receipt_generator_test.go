package pdf_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/infrastructure/pdf"
)

func activeSub() *entity.Subscription {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &entity.Subscription{
		ID: "sub-1", OrganizationID: "org-1", PlanType: entity.PlanLifetime,
		Status: entity.SubscriptionActive, OrderID: "order_ABC", PaymentID: "pay_XYZ",
		Amount: decimal.RequireFromString("1999.5"), Currency: "INR", ActivatedAt: &now,
	}
}

func TestReceiptGenerator_GeneraPDF(t *testing.T) {
	g := pdf.NewReceiptGenerator("")
	out, err := g.Render(&entity.Organization{ID: "org-1", Name: "Acme"}, activeSub())

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestReceiptGenerator_RechazaSuscripcionPendiente(t *testing.T) {
	sub := activeSub()
	sub.Status = entity.SubscriptionPendingPayment

	_, err := pdf.NewReceiptGenerator("TaskVault").Render(&entity.Organization{ID: "org-1"}, sub)
	assert.Error(t, err)

	_, err = pdf.NewReceiptGenerator("TaskVault").Render(nil, activeSub())
	assert.Error(t, err)
}

func TestFormatAmount_SeparadorDeMiles(t *testing.T) {
	assert.Equal(t, "1,999.50 INR", pdf.FormatAmount(activeSub()))
}
