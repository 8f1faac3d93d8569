package period

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/ansfeed/pkg/core"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		filename string
		want     core.Period
		wantOK   bool
	}{
		{"1T2023_despesas.csv", core.Period{Year: 2023, Quarter: 1}, true},
		{"2023_1_despesas.csv", core.Period{Year: 2023, Quarter: 1}, true},
		{"3T2024.zip", core.Period{Year: 2024, Quarter: 3}, true},
		{"4t2022.csv", core.Period{Year: 2022, Quarter: 4}, true},
		{"2024_4.csv", core.Period{Year: 2024, Quarter: 4}, true},
		{"2024-2T_DEMONSTRACOES.xlsx", core.Period{Year: 2024, Quarter: 2}, true},
		{"2 T 2021.csv", core.Period{Year: 2021, Quarter: 2}, true},
		{"Relatorio_cadop.csv", core.Period{}, false},
		{"despesas.csv", core.Period{}, false},
		{"", core.Period{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, ok := Extract(tt.filename)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
