package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/domain"
)

type fakeMailSender struct {
	sent     []*mail.SGMailV3
	response *rest.Response
	err      error
}

func (f *fakeMailSender) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func plainText(m *mail.SGMailV3) string {
	for _, c := range m.Content {
		if c.Type == "text/plain" {
			return c.Value
		}
	}
	return ""
}

func notifierFixtures() (*domain.Customer, *domain.Product, *domain.RentalOrder) {
	customer := domain.NewCustomer("Jane Doe", "jane@example.com", "5551234567")
	product := domain.NewProduct("Concrete Mixer", decimal.NewFromInt(100))
	order := &domain.RentalOrder{
		OrderNumber:     "RO0007",
		StartDate:       mustDate("2024-03-05"),
		EndDate:         mustDate("2024-03-08"),
		TotalPrice:      decimal.NewFromInt(440),
		DepositAmount:   decimal.Zero,
		PaidAmount:      decimal.NewFromInt(100),
		RemainingAmount: decimal.NewFromInt(340),
	}
	return customer, product, order
}

func TestSendGridNotifier_OrderConfirmation(t *testing.T) {
	sender := &fakeMailSender{response: &rest.Response{StatusCode: 202}}
	n := newSendGridNotifier(sender, "rentals@example.com", "Rentals", "ops@example.com")
	customer, product, order := notifierFixtures()

	require.NoError(t, n.SendOrderConfirmation(context.Background(), customer, product, order))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "Rental RO0007 confirmed", msg.Subject)
	assert.Equal(t, "rentals@example.com", msg.From.Address)
	require.Len(t, msg.Personalizations, 1)
	assert.Equal(t, "jane@example.com", msg.Personalizations[0].To[0].Address)
	body := plainText(msg)
	assert.Contains(t, body, "Concrete Mixer from 2024-03-05 to 2024-03-08")
	assert.Contains(t, body, "Total: 440.00")
}

func TestSendGridNotifier_Failures(t *testing.T) {
	customer, product, order := notifierFixtures()
	ctx := context.Background()

	t.Run("provider rejects the message", func(t *testing.T) {
		sender := &fakeMailSender{response: &rest.Response{StatusCode: 500, Body: "boom"}}
		n := newSendGridNotifier(sender, "rentals@example.com", "Rentals", "ops@example.com")
		err := n.SendOverdueReminder(ctx, customer, product, order, decimal.NewFromInt(150))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})

	t.Run("transport error", func(t *testing.T) {
		sender := &fakeMailSender{err: errors.New("dial tcp: timeout")}
		n := newSendGridNotifier(sender, "rentals@example.com", "Rentals", "ops@example.com")
		err := n.SendPaymentReceipt(ctx, customer, order, &domain.Payment{Amount: decimal.NewFromInt(100), Method: domain.PaymentMethodBankTransfer})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout")
	})

	t.Run("customer without email", func(t *testing.T) {
		sender := &fakeMailSender{response: &rest.Response{StatusCode: 202}}
		n := newSendGridNotifier(sender, "rentals@example.com", "Rentals", "ops@example.com")
		noEmail := *customer
		noEmail.Email = ""
		require.Error(t, n.SendOrderConfirmation(ctx, &noEmail, product, order))
		assert.Empty(t, sender.sent)
	})
}

func TestSendGridNotifier_MaintenanceReport(t *testing.T) {
	sender := &fakeMailSender{response: &rest.Response{StatusCode: 202}}
	n := newSendGridNotifier(sender, "rentals@example.com", "Rentals", "ops@example.com")
	ctx := context.Background()

	require.NoError(t, n.SendMaintenanceReport(ctx, nil))
	assert.Empty(t, sender.sent)

	due := mustDate("2024-02-01")
	product := domain.NewProduct("Concrete Mixer", decimal.NewFromInt(100))
	product.Code = "PROD0001"
	product.NextMaintenanceDate = &due
	require.NoError(t, n.SendMaintenanceReport(ctx, []domain.Product{*product}))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ops@example.com", sender.sent[0].Personalizations[0].To[0].Address)
	assert.Contains(t, plainText(sender.sent[0]), "[PROD0001] Concrete Mixer, due 2024-02-01")
}
