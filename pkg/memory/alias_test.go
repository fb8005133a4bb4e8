package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "maxwidthmm", Normalize("Max Width (mm)"))
	assert.Equal(t, "maxwidth", Normalize("max_width"))
	assert.Equal(t, "最大宽度", Normalize("最大 宽度"))
}

func TestAliasTable_Matches(t *testing.T) {
	table := NewAliasTable(DefaultAliases())

	tests := []struct {
		requested string
		key       string
		want      bool
	}{
		{"max_width", "Max Width (mm)", true},
		{"Max Width", "Max Width (mm)", true},
		{"最大宽度", "Max Width (mm)", true},
		{"宽度最大值", "Max Width (mm)", true},
		{"平均宽度", "Avg Width (mm)", true},
		{"AvgWidth", "Avg Width (mm)", true},
		{"area", "Area (mm^2)", true},
		{"area", "Length (mm)", false},
		// Loose by design: a bare "width" hits either width metric.
		{"width", "Avg Width (mm)", true},
	}
	for _, tt := range tests {
		t.Run(tt.requested+"->"+tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Matches(tt.requested, tt.key))
		})
	}
}

func TestAliasTable_Standard(t *testing.T) {
	table := NewAliasTable(map[string]string{"Crack Length": "length"})
	assert.Equal(t, "length", table.Standard("crack_length"))
	assert.Equal(t, "unknown", table.Standard("Unknown"))
}
