package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitColumnRef(t *testing.T) {
	tests := []struct {
		ref     string
		table   string
		column  string
		wantErr bool
	}{
		{ref: "orders.customer_id", table: "orders", column: "customer_id"},
		{ref: "customers.customer_id", table: "customers", column: "customer_id"},
		{ref: "orders", wantErr: true},
		{ref: "a.b.c", wantErr: true},
		{ref: ".column", wantErr: true},
		{ref: "table.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			table, column, err := splitColumnRef(tt.ref)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.table, table)
			assert.Equal(t, tt.column, column)
		})
	}
}

func TestCommandWiring(t *testing.T) {
	ask := AskCommand()
	assert.Equal(t, "ask", ask.Name)

	rels := RelationshipsCommand()
	require.Len(t, rels.Commands, 3)

	names := make([]string, 0, 3)
	for _, sub := range rels.Commands {
		names = append(names, sub.Name)
	}

	assert.ElementsMatch(t, []string{"list", "add", "delete"}, names)

	hist := HistoryCommand()
	require.Len(t, hist.Commands, 2)
}
