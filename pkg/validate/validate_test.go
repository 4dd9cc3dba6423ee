package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/studio/pkg/validate"
)

type address struct {
	Street string `json:"street" validate:"required"`
	City   string `json:"city"   validate:"required"`
}

type line struct {
	Product  string `json:"product"  validate:"required,objectid"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

type orderInput struct {
	Items   []line  `json:"items"           validate:"required,min=1"`
	Address address `json:"shippingAddress"`
	Role    string  `json:"role"            validate:"nullable,in=user|admin"`
	Email   string  `json:"email"           validate:"required,email"`
	Price   float64 `json:"price"           validate:"gte=0"`
	Start   string  `json:"start"           validate:"required,clock"`
}

func validOrder() orderInput {
	return orderInput{
		Items:   []line{{Product: "64b7f0c2a1b2c3d4e5f60718", Quantity: 2}},
		Address: address{Street: "1 Main", City: "Springfield"},
		Email:   "jane@example.com",
		Start:   "09:30",
	}
}

func TestValidInputPasses(t *testing.T) {
	errs := validate.Struct(validOrder())
	assert.False(t, validate.HasErrors(errs), "unexpected errors: %v", errs)
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(orderInput{})
	assert.Contains(t, errs, "items")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "shippingAddress.street")
	assert.Contains(t, errs, "shippingAddress.city")
}

func TestNestedSliceErrorsUseDottedPath(t *testing.T) {
	in := validOrder()
	in.Items = append(in.Items, line{Product: "nope", Quantity: 0})

	errs := validate.Struct(in)
	assert.Contains(t, errs, "items.1.product")
	assert.NotContains(t, errs, "items.0.product")
}

func TestQuantityMinimum(t *testing.T) {
	in := validOrder()
	in.Items[0].Quantity = 0

	errs := validate.Struct(in)
	assert.Equal(t, "The items.0.quantity must be at least 1.", errs["items.0.quantity"])
}

func TestInRuleAndNullable(t *testing.T) {
	in := validOrder()
	in.Role = "root"
	assert.Contains(t, validate.Struct(in), "role")

	in.Role = ""
	assert.NotContains(t, validate.Struct(in), "role")
}

func TestNegativePriceFails(t *testing.T) {
	in := validOrder()
	in.Price = -1
	assert.Contains(t, validate.Struct(in), "price")
}

func TestClockRule(t *testing.T) {
	in := validOrder()
	for _, bad := range []string{"9:30", "25:00", "noon"} {
		in.Start = bad
		assert.Contains(t, validate.Struct(in), "start", bad)
	}
}

func TestRequiredPointerAcceptsZeroValue(t *testing.T) {
	type input struct {
		Price *float64 `json:"price" validate:"required,gte=0"`
	}
	zero := 0.0
	assert.Empty(t, validate.Struct(input{Price: &zero}))
	assert.Equal(t, "The price field is required.", validate.Struct(input{})["price"])
}
