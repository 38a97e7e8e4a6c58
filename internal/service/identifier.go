package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"rental-backend/internal/repository"
)

const (
	OrderNumberPrefix  = "RO"
	ProductCodePrefix  = "PROD"
	CustomerCodePrefix = "CUST"
	codeDigits         = 4
)

// IdentifierGenerator issues human readable codes. It runs inside the creating transaction so the
// code and the row commit together.
type IdentifierGenerator interface {
	NextOrderNumber(ctx context.Context, repos repository.RepositoryFactory) (string, error)
	NextProductCode(ctx context.Context, repos repository.RepositoryFactory) (string, error)
	NextCustomerCode(ctx context.Context, repos repository.RepositoryFactory) (string, error)
}

// SequenceGenerator continues from the highest stored code: RO0041 is followed by RO0042.
type SequenceGenerator struct{}

func NewSequenceGenerator() IdentifierGenerator {
	return SequenceGenerator{}
}

func (SequenceGenerator) NextOrderNumber(ctx context.Context, repos repository.RepositoryFactory) (string, error) {
	last, err := repos.NewRentalOrderRepository().LastOrderNumber(ctx)
	if err != nil {
		return "", fmt.Errorf("read last order number: %w", err)
	}
	return nextCode(OrderNumberPrefix, last)
}

func (SequenceGenerator) NextProductCode(ctx context.Context, repos repository.RepositoryFactory) (string, error) {
	last, err := repos.NewProductRepository().LastCode(ctx)
	if err != nil {
		return "", fmt.Errorf("read last product code: %w", err)
	}
	return nextCode(ProductCodePrefix, last)
}

func (SequenceGenerator) NextCustomerCode(ctx context.Context, repos repository.RepositoryFactory) (string, error) {
	last, err := repos.NewCustomerRepository().LastCode(ctx)
	if err != nil {
		return "", fmt.Errorf("read last customer code: %w", err)
	}
	return nextCode(CustomerCodePrefix, last)
}

func nextCode(prefix, last string) (string, error) {
	n := 0
	if last != "" {
		digits := strings.TrimPrefix(last, prefix)
		parsed, err := strconv.Atoi(digits)
		if err != nil || digits == last {
			return "", fmt.Errorf("unexpected code %q for prefix %s", last, prefix)
		}
		n = parsed
	}
	return fmt.Sprintf("%s%0*d", prefix, codeDigits, n+1), nil
}
