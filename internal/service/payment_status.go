package service

import "github.com/SiPilip/gathering-api/internal/models"

// DeriveStatus maps a fee and a paid total onto a payment status. Nothing paid
// is always PENDING and overpayment counts as fully paid.
func DeriveStatus(totalFee, totalPaid int64) models.RegistrationStatus {
	switch {
	case totalPaid <= 0:
		return models.StatusPending
	case totalPaid < totalFee:
		return models.StatusPartialPaid
	default:
		return models.StatusFullyPaid
	}
}

// ResolveStatus is DeriveStatus with the cancelled flag taking precedence.
// Cancellation is terminal and never reverted by payment activity.
func ResolveStatus(cancelled bool, totalFee, totalPaid int64) models.RegistrationStatus {
	if cancelled {
		return models.StatusCancelled
	}
	return DeriveStatus(totalFee, totalPaid)
}

func remaining(totalFee, totalPaid int64) int64 {
	if totalPaid >= totalFee {
		return 0
	}
	return totalFee - totalPaid
}
