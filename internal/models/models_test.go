package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorMatching(t *testing.T) {
	err := Invalid(ReasonSplitMismatch, "sum %s != total %s", "99.00", "100.00")
	wrapped := fmt.Errorf("RecordExpense: %w", err)

	assert.True(t, errors.Is(wrapped, ErrValidation))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, ReasonSplitMismatch, ReasonOf(wrapped))
	assert.Equal(t, ValidationReason(""), ReasonOf(ErrNotFound))
	assert.Contains(t, err.Error(), "SplitMismatch")
}

func TestGroupMembership(t *testing.T) {
	g := &Group{Members: []Member{{ID: "a", DisplayName: "Asha"}, {ID: "b", DisplayName: "Bilal"}}}

	assert.True(t, g.HasMember("a"))
	assert.False(t, g.HasMember("c"))
	assert.Equal(t, []string{"a", "b"}, g.MemberIDs())
}

func TestBalanceInvolves(t *testing.T) {
	b := Balance{DebtorID: "b", CreditorID: "a"}
	assert.True(t, b.Involves("a", "b"))
	assert.True(t, b.Involves("b", "a"))
	assert.False(t, b.Involves("a", "c"))
}
