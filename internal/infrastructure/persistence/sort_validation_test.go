package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		in, def, want string
	}{
		{"asc", "DESC", "ASC"},
		{" DESC ", "ASC", "DESC"},
		{"", "ASC", "ASC"},
		{"sideways", "DESC", "DESC"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidateSortOrder(tt.in, tt.def), tt.in)
	}
}

func TestValidateSortField(t *testing.T) {
	assert.Equal(t, "balance", ValidateSortField("balance", BillingSortFields, "due_date"))
	assert.Equal(t, "due_date", ValidateSortField("", BillingSortFields, "due_date"))
	assert.Equal(t, "due_date", ValidateSortField("amount; DROP TABLE billings", BillingSortFields, "due_date"))
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "due_date ASC, id ASC", orderClause("", BillingSortFields, "due_date", "", "ASC"))
	assert.Equal(t, "amount DESC, id ASC", orderClause("amount", BillingSortFields, "due_date", "desc", "ASC"))
}
