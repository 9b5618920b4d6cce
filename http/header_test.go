package http

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeader(t *testing.T) {
	var chain *Header
	chain = chain.Prepend("Host", "localhost")
	chain = chain.Prepend("Content-Type", "text/plain")
	chain = chain.Prepend("X-Custom", "hello")

	t.Run("reverse order", func(t *testing.T) {
		var names []string
		for node := chain; node != nil; node = node.Next {
			names = append(names, node.Name)
		}

		require.Equal(t, []string{"X-Custom", "Content-Type", "Host"}, names)
		require.Equal(t, 3, chain.Len())
	})

	t.Run("case insensitive lookup", func(t *testing.T) {
		for _, name := range []string{"host", "HOST", "Host", "hOsT"} {
			header := chain.Find(name)
			require.NotNil(t, header, name)
			require.Equal(t, "localhost", header.Value)
		}

		require.Equal(t, "text/plain", chain.Find("content-type").Value)
	})

	t.Run("missing", func(t *testing.T) {
		require.Nil(t, chain.Find("Accept"))
		require.Nil(t, chain.Find(""))

		var empty *Header
		require.Nil(t, empty.Find("Host"))
		require.Zero(t, empty.Len())
	})

	t.Run("duplicates", func(t *testing.T) {
		dup := chain.Prepend("host", "example.com")
		require.Equal(t, "example.com", dup.Find("Host").Value)
	})
}
