package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAWBRequest(t *testing.T) {
	now := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("EET", 2*3600))

	t.Run("maps order fields", func(t *testing.T) {
		req := BuildAWBRequest(newTestOrder(), BuildOptions{Parcels: 2, DefaultWeight: 1, Now: now})

		assert.Equal(t, "Ion Popescu", req.RecipientName)
		assert.Equal(t, "Ion Popescu", req.RecipientContact)
		assert.Equal(t, "Str. Lunga 4 Ap. 2", req.Address)
		assert.Equal(t, "Brasov", req.City)
		assert.Equal(t, "BV", req.County)
		assert.Equal(t, "0722000000", req.Phone)
		assert.Equal(t, "ion@example.ro", req.Email)
		assert.Equal(t, 2, req.Parcels)
		assert.Equal(t, "2024-03-09", req.CollectionDate)
		assert.Equal(t, "101", req.InvoiceRef)
	})

	tests := []struct {
		name          string
		items         []LineItem
		defaultWeight float64
		want          string
	}{
		{"light order uses default", []LineItem{{Weight: 0.2, Quantity: 2}, {Weight: 0.3, Quantity: 1}}, 0, "1.00"},
		{"weightless items use configured default", []LineItem{{Quantity: 4}}, 2.5, "2.50"},
		{"heavy order keeps computed weight", []LineItem{{Weight: 1.25, Quantity: 3}}, 1, "3.75"},
		{"exactly at threshold", []LineItem{{Weight: 1, Quantity: 1}}, 1, "1.00"},
		{"light order uses smaller default", []LineItem{{Weight: 0.7, Quantity: 1}}, 0.5, "0.50"},
		{"order above threshold ignores larger default", []LineItem{{Weight: 0.75, Quantity: 2}}, 2.5, "1.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := newTestOrder()
			order.Items = tt.items
			req := BuildAWBRequest(order, BuildOptions{Parcels: 1, DefaultWeight: tt.defaultWeight, Now: now})
			assert.Equal(t, tt.want, req.ToForm().Get("colet_greutate"))
		})
	}
}

func TestAWBRequest_ToForm(t *testing.T) {
	req := BuildAWBRequest(newTestOrder(), BuildOptions{Parcels: 3, Now: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)})
	form := req.ToForm()

	assert.Equal(t, "3", form.Get("colet_buc"))
	assert.Equal(t, "2024-01-02", form.Get("data_colectare"))
	assert.Equal(t, "500001", form.Get("destinatar_cod_postal"))
	assert.Len(t, form, 12)
	assert.Empty(t, form.Get("username"))
}

func TestAWBRequest_Validate(t *testing.T) {
	valid := BuildAWBRequest(newTestOrder(), BuildOptions{Parcels: 1})
	require.NoError(t, valid.Validate())

	invalid := valid
	invalid.City = ""
	invalid.Parcels = 0
	invalid.Email = "not-an-email"

	err := invalid.Validate()
	require.Error(t, err)

	awbErr, ok := AsAWBError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, awbErr.Kind)
	assert.Contains(t, awbErr.Fields, "destinatar_localitate")
	assert.Contains(t, awbErr.Fields, "colet_buc")
	assert.Contains(t, awbErr.Fields, "destinatar_email")
	assert.NotContains(t, awbErr.Fields, "destinatar_nume")
}

func TestAWBErrors(t *testing.T) {
	domainErr := NewDomainError(3, "")
	assert.Equal(t, MsgUnknownAPIError, domainErr.Message)
	assert.Equal(t, KindDomain, KindOf(domainErr))

	notFound := NewNotFoundError()
	assert.ErrorIs(t, notFound, ErrOrderNotFound)
	assert.Equal(t, MsgOrderNotFound, notFound.Message)

	assert.Equal(t, KindInternal, KindOf(assert.AnError))
}
