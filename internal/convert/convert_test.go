package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteJurisdictionDigit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "source_digit", in: "xx2159GQyy", want: "xx2129GQyy"},
		{name: "other_digit", in: "xx2139GQyy", want: "xx2139GQyy"},
		{name: "no_marker", in: "0104660575291", want: "0104660575291"},
		{name: "marker_at_end", in: "010466057529121", want: "010466057529121"},
		{name: "only_first_marker", in: "AB2139215X", want: "AB2139215X"},
		{name: "real_code", in: "0104660575291478215GQNjOY>S3!sQ", want: "0104660575291478212GQNjOY>S3!sQ"},
		{name: "empty", in: "", want: ""},
		{name: "utf8_tail", in: "21" + "5" + "ж", want: "21" + "2" + "ж"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, RewriteJurisdictionDigit(tt.in))
		})
	}
}

func TestRewriteJurisdictionDigitIdempotent(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"xx2159GQ", "0104811644010685215mpid7gn7wzu", "nothing", "2155"} {
		once := RewriteJurisdictionDigit(in)
		assert.Equal(t, once, RewriteJurisdictionDigit(once), in)
	}
}

func TestAllAndLines(t *testing.T) {
	t.Parallel()

	got := All([]string{"a215b", "a213b"})
	assert.Equal(t, []string{"a212b", "a213b"}, got)
	assert.Equal(t, "a212b\na213b\n", Lines(got))
	assert.Equal(t, "", Lines(nil))
}
