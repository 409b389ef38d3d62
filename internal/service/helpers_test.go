package service

import (
	"time"

	"billbook/internal/model"
	"billbook/pkg/apperror"

	"github.com/samber/lo"
)

func itemFixture(sku, sale, purchase, tax string) model.Item {
	return model.Item{
		SKU:            sku,
		Name:           "Pen " + sku,
		HSNCode:        "9608",
		Unit:           "NOS",
		SalePrice:      dec(sale),
		PurchasePrice:  dec(purchase),
		TaxRatePercent: dec(tax),
	}
}

// fieldsOf lists the fields named by a validation error.
func fieldsOf(err error) []string {
	if err == nil {
		return nil
	}
	return lo.Map(apperror.GetAppError(err).Errors, func(fe apperror.FieldError, _ int) string { return fe.Field })
}

func statusOf(err error) int {
	if err == nil {
		return 0
	}
	return apperror.GetAppError(err).Code
}

func mustDay(s string) time.Time {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}
