package email

import (
	"slices"
	"strings"
)

// RecipientPolicy decides who receives a lead.
type RecipientPolicy struct {
	// Local routes every message to DevRecipient.
	Local        bool
	DevRecipient string
	// TestContact is a contact address that routes to DevRecipient even in
	// production. Compared without case.
	TestContact string
}

// Resolve returns the recipients for a lead from contactEmail.
func (p RecipientPolicy) Resolve(contactEmail string, companyRecipients []string) []string {
	if p.Local {
		return []string{p.DevRecipient}
	}
	if p.TestContact != "" && strings.EqualFold(contactEmail, p.TestContact) {
		return []string{p.DevRecipient}
	}
	return slices.Clone(companyRecipients)
}
