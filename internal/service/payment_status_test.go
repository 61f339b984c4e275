package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SiPilip/gathering-api/internal/models"
)

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name string
		fee  int64
		paid int64
		want models.RegistrationStatus
	}{
		{name: "nothing paid", fee: 100000, paid: 0, want: models.StatusPending},
		{name: "partial", fee: 100000, paid: 1, want: models.StatusPartialPaid},
		{name: "one short", fee: 100000, paid: 99999, want: models.StatusPartialPaid},
		{name: "exact", fee: 100000, paid: 100000, want: models.StatusFullyPaid},
		{name: "overpaid", fee: 100000, paid: 150000, want: models.StatusFullyPaid},
		{name: "free registration unpaid", fee: 0, paid: 0, want: models.StatusPending},
		{name: "negative paid", fee: 100000, paid: -5, want: models.StatusPending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStatus(tc.fee, tc.paid))
		})
	}
}

func TestDeriveStatusIsMonotonicInPaid(t *testing.T) {
	rank := map[models.RegistrationStatus]int{
		models.StatusPending:     0,
		models.StatusPartialPaid: 1,
		models.StatusFullyPaid:   2,
	}
	const fee = int64(300000)
	prev := DeriveStatus(fee, 0)
	for paid := int64(0); paid <= 2*fee; paid += 2500 {
		current := DeriveStatus(fee, paid)
		assert.GreaterOrEqual(t, rank[current], rank[prev], "paid=%d", paid)
		prev = current
	}
}

func TestResolveStatusCancelledWins(t *testing.T) {
	assert.Equal(t, models.StatusCancelled, ResolveStatus(true, 100000, 0))
	assert.Equal(t, models.StatusCancelled, ResolveStatus(true, 100000, 100000))
	assert.Equal(t, models.StatusPartialPaid, ResolveStatus(false, 100000, 40000))
}

func TestRemainingNeverNegative(t *testing.T) {
	assert.Equal(t, int64(60000), remaining(100000, 40000))
	assert.Equal(t, int64(0), remaining(100000, 100000))
	assert.Equal(t, int64(0), remaining(100000, 250000))
}
