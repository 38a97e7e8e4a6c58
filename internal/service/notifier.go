package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"

	"rental-backend/internal/domain"
	"rental-backend/internal/logger"
	"rental-backend/internal/metrics"
)

// mailSender is the part of the SendGrid client the notifier uses
type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type sendGridNotifier struct {
	client    mailSender
	fromEmail string
	fromName  string
	opsEmail  string
}

func NewSendGridNotifier(apiKey, fromEmail, fromName, opsEmail string) Notifier {
	return newSendGridNotifier(sendgrid.NewSendClient(apiKey), fromEmail, fromName, opsEmail)
}

func newSendGridNotifier(client mailSender, fromEmail, fromName, opsEmail string) *sendGridNotifier {
	return &sendGridNotifier{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		opsEmail:  opsEmail,
	}
}

func (n *sendGridNotifier) send(ctx context.Context, toEmail, toName, subject, body string) error {
	if toEmail == "" {
		return fmt.Errorf("no recipient for %q", subject)
	}
	from := mail.NewEmail(n.fromName, n.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, body, "")

	logger.ExternalServiceCall("sendgrid", "send", "to", toEmail, "subject", subject)
	response, err := n.client.SendWithContext(ctx, message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err, "to", toEmail)
	if err != nil {
		metrics.Notifications.WithLabelValues("email", metrics.ResultError).Inc()
		return fmt.Errorf("failed to send email: %w", err)
	}
	metrics.Notifications.WithLabelValues("email", metrics.ResultOK).Inc()
	return nil
}

func (n *sendGridNotifier) SendOrderConfirmation(ctx context.Context, customer *domain.Customer, product *domain.Product, order *domain.RentalOrder) error {
	subject := fmt.Sprintf("Rental %s confirmed", order.OrderNumber)
	body := fmt.Sprintf("Hello %s,\n\nYour rental of %s from %s to %s is confirmed.\n\nTotal: %s\nDeposit: %s\nAlready paid: %s\n\nThank you.",
		customer.Name, product.Name, order.StartDate.Format(domain.DateLayout), order.EndDate.Format(domain.DateLayout),
		order.TotalPrice.StringFixed(2), order.DepositAmount.StringFixed(2), order.PaidAmount.StringFixed(2))
	return n.send(ctx, customer.Email, customer.Name, subject, body)
}

func (n *sendGridNotifier) SendOverdueReminder(ctx context.Context, customer *domain.Customer, product *domain.Product, order *domain.RentalOrder, lateFee decimal.Decimal) error {
	subject := fmt.Sprintf("Rental %s is overdue", order.OrderNumber)
	body := fmt.Sprintf("Hello %s,\n\n%s was due back on %s. A late fee of %s has accrued so far and grows each day until the item is returned.",
		customer.Name, product.Name, order.EndDate.Format(domain.DateLayout), lateFee.StringFixed(2))
	return n.send(ctx, customer.Email, customer.Name, subject, body)
}

func (n *sendGridNotifier) SendPaymentReceipt(ctx context.Context, customer *domain.Customer, order *domain.RentalOrder, payment *domain.Payment) error {
	subject := fmt.Sprintf("Payment received for %s", order.OrderNumber)
	body := fmt.Sprintf("Hello %s,\n\nWe received %s by %s on %s.\nRemaining balance: %s.",
		customer.Name, payment.Amount.StringFixed(2), strings.ReplaceAll(string(payment.Method), "_", " "),
		payment.Date.Format(domain.DateLayout), order.RemainingAmount.StringFixed(2))
	return n.send(ctx, customer.Email, customer.Name, subject, body)
}

func (n *sendGridNotifier) SendMaintenanceReport(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("The following products are due for maintenance:\n\n")
	for i := range products {
		p := &products[i]
		fmt.Fprintf(&b, "- %s, due %s\n", p.DisplayName(), p.NextMaintenanceDate.Format(domain.DateLayout))
	}
	return n.send(ctx, n.opsEmail, "Operations", fmt.Sprintf("%d products due for maintenance", len(products)), b.String())
}

// logNotifier writes notifications to the log; used when no email provider is configured
type logNotifier struct{}

func NewLogNotifier() Notifier {
	return logNotifier{}
}

func (logNotifier) SendOrderConfirmation(ctx context.Context, customer *domain.Customer, product *domain.Product, order *domain.RentalOrder) error {
	logger.InfoContext(ctx, "Order confirmation", "order_number", order.OrderNumber, "customer", customer.Email, "product", product.Name)
	metrics.Notifications.WithLabelValues("log", metrics.ResultOK).Inc()
	return nil
}

func (logNotifier) SendOverdueReminder(ctx context.Context, customer *domain.Customer, product *domain.Product, order *domain.RentalOrder, lateFee decimal.Decimal) error {
	logger.InfoContext(ctx, "Overdue reminder", "order_number", order.OrderNumber, "customer", customer.Email, "late_fee", lateFee.String())
	metrics.Notifications.WithLabelValues("log", metrics.ResultOK).Inc()
	return nil
}

func (logNotifier) SendPaymentReceipt(ctx context.Context, customer *domain.Customer, order *domain.RentalOrder, payment *domain.Payment) error {
	logger.InfoContext(ctx, "Payment receipt", "order_number", order.OrderNumber, "customer", customer.Email, "amount", payment.Amount.String())
	metrics.Notifications.WithLabelValues("log", metrics.ResultOK).Inc()
	return nil
}

func (logNotifier) SendMaintenanceReport(ctx context.Context, products []domain.Product) error {
	for i := range products {
		logger.InfoContext(ctx, "Maintenance due", "product", products[i].DisplayName())
	}
	metrics.Notifications.WithLabelValues("log", metrics.ResultOK).Inc()
	return nil
}
