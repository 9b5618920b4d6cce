package parser

type state uint8

const (
	eMessageBegin state = iota
	eMethod
	eURL
	eProto
	eProtoLF
	eHeaderBegin
	eHeaderName
	eValueBegin
	eValue
	eValueLF
	eHeadersLF
	eBody
	eChunked
	eUpgraded
	eDead
)

type knownHeader uint8

const (
	hOther knownHeader = iota
	hContentLength
	hTransferEncoding
	hConnection
	hUpgrade
	hTrailer
)

var knownHeaders = map[string]knownHeader{
	"content-length":    hContentLength,
	"transfer-encoding": hTransferEncoding,
	"connection":        hConnection,
	"upgrade":           hUpgrade,
	"trailer":           hTrailer,
}

// tokenChars marks bytes allowed in a header name (RFC 9110, 5.6.2)
var tokenChars = func() (table [256]bool) {
	for c := '0'; c <= '9'; c++ {
		table[c] = true
	}
	for c := 'a'; c <= 'z'; c++ {
		table[c] = true
		table[c-'a'+'A'] = true
	}
	for _, c := range "!#$%&'*+-.^_`|~" {
		table[c] = true
	}

	return table
}()

func isToken(c byte) bool {
	return tokenChars[c]
}

func isURLChar(c byte) bool {
	return c > ' ' && c != 0x7f
}

func isValueChar(c byte) bool {
	return c == '\t' || (c >= ' ' && c != 0x7f)
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c | 0x20
	}

	return c
}
