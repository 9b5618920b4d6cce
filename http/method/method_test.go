package method

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func BenchmarkMethod(b *testing.B) {
	var parsed Method

	for _, m := range List {
		b.Run(m.String(), func(b *testing.B) {
			str := m.String()
			b.SetBytes(int64(len(str)))
			b.ResetTimer()

			for j := 0; j < b.N; j++ {
				parsed = Parse(str)
			}
		})
	}

	keepalive(parsed)
}

func keepalive(Method) {}

func TestMethod(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		for _, method := range List {
			assert.Equal(t, method, Parse(method.String()))
		}
	})

	t.Run("unknown", func(t *testing.T) {
		for _, str := range []string{"", "get", "GETS", "*", "PROPFIND"} {
			require.Equal(t, Unknown, Parse(str), str)
		}

		require.Equal(t, "Unknown", Method(200).String())
	})

	t.Run("matches", func(t *testing.T) {
		require.True(t, Any.Matches(GET))
		require.True(t, Any.Matches(PATCH))
		require.True(t, POST.Matches(POST))
		require.False(t, POST.Matches(GET))
	})
}
