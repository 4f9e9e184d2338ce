package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeGTIN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		code   Code
		want   string
		wantOK bool
	}{
		{name: "full_code", code: "0104660575291485215&xE6jq>TVW<a", want: "04660575291485", wantOK: true},
		{name: "exact_length", code: "0104660575291485", want: "04660575291485", wantOK: true},
		{name: "no_marker", code: "0204660575291485215abc"},
		{name: "too_short", code: "01046605"},
		{name: "empty", code: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := tt.code.GTIN()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGroupDemandKeepsFirstSeenOrder(t *testing.T) {
	t.Parallel()

	var d GroupDemand
	d.Add("B", 2)
	d.Add("A", 5)
	d.Add("B", 1)

	assert.Equal(t, []string{"B", "A"}, d.GTINs())
	n, ok := d.Get("B")
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	_, ok = d.Get("C")
	assert.False(t, ok)
}

func TestCodePoolAppendAndClone(t *testing.T) {
	t.Parallel()

	var p CodePool
	p.Append("A", "a1")
	p.Append("B")
	p.Append("A", "a2")

	assert.Equal(t, []string{"A"}, p.GTINs())
	assert.Equal(t, []Code{"a1", "a2"}, p.Codes("A"))

	c := p.Clone()
	c.Append("A", "a3")
	assert.Equal(t, 2, p.Len("A"))
	assert.Equal(t, 3, c.Len("A"))
	assert.Equal(t, 3, c.Total())
}

func TestShortfallJSONKeepsOrder(t *testing.T) {
	t.Parallel()

	s := Shortfall{{GTIN: "B", Count: 2}, {GTIN: "A", Count: 8}}
	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"B":2,"A":8}`, string(b))
	assert.Equal(t, `{"B":2,"A":8}`, string(b))

	var back Shortfall
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, s, back)

	empty, err := json.Marshal(Shortfall(nil))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(empty))
}

func TestBeginStepAppends(t *testing.T) {
	t.Parallel()

	var r WorkflowResult
	rec := r.BeginStep(StepAuthenticate)
	rec.Status = StepCompleted
	r.BeginStep(StepSubmitReports)

	require.Len(t, r.Steps, 2)
	assert.Equal(t, StepCompleted, r.Steps[0].Status)
	assert.Equal(t, StepInProgress, r.Steps[1].Status)
	assert.Equal(t, StepNames[StepSubmitReports], r.Steps[1].Name)
	assert.Equal(t, []int{1, 5}, r.StepIndexes())
}
