// Package parser implements an incremental HTTP/1.x requests parser. It never buffers the
// request itself: the URL, header names and values are reported by callbacks as spans of
// the input, possibly split into several calls when the field spans multiple chunks.
package parser

import (
	"bytes"
	"errors"
	"io"
	"math"

	"github.com/indigo-web/ahttpd/http/method"
	"github.com/indigo-web/ahttpd/http/status"
	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/utils/uf"
)

// Callbacks receive the parsed request pieces. Returning an error aborts the parsing,
// the parser is dead afterward.
type Callbacks interface {
	OnURL(b []byte) error
	OnHeaderField(b []byte) error
	OnHeaderValue(b []byte) error
	// OnHeadersComplete is called after the empty line terminating the headers. If
	// skipBody is true, the declared body is consumed silently.
	OnHeadersComplete() (skipBody bool, err error)
	OnBody(b []byte) error
	OnMessageComplete() error
}

const (
	maxMethodLen   = len("OPTIONS")
	maxProtoLen    = len("HTTP/1.1")
	maxNameLen     = len("transfer-encoding")
	maxValueLen    = 64
	maxContentSize = (math.MaxInt64 - 9) / 10
)

var errUpgrade = errors.New("upgrade")

type Parser struct {
	cb    Callbacks
	state state

	method       method.Method
	token        [maxProtoLen]byte
	tokenLen     int
	name         [maxNameLen]byte
	nameLen      int
	nameOverrun  bool
	header       knownHeader
	value        [maxValueLen]byte
	valueLen     int
	valueOverrun bool
	valueSeen    bool

	contentLength    int64
	hasContentLength bool
	hasEncoding      bool
	chunked          bool
	trailer          bool
	upgradeHeader    bool
	connUpgrade      bool

	skip     bool
	bodyLeft int64
	chunks   *chunkedbody.Parser
	upgrade  bool
}

func New(cb Callbacks) *Parser {
	return &Parser{
		cb: cb,
	}
}

// Method returns the method of the request being parsed. It's valid from the first
// OnURL call on.
func (p *Parser) Method() method.Method {
	return p.method
}

// Upgrade reports whether the parsing has stopped because the request asks for a protocol
// upgrade (including the CONNECT method).
func (p *Parser) Upgrade() bool {
	return p.upgrade
}

// Execute feeds the parser with the next piece of the stream. It returns the number of
// consumed bytes, which is less than len(data) only if an error occurred or the request
// asks for an upgrade.
func (p *Parser) Execute(data []byte) (n int, err error) {
	switch p.state {
	case eDead:
		return 0, status.ErrParserIsDead
	case eUpgraded:
		return 0, nil
	}

	i := 0
	for i < len(data) {
		switch p.state {
		case eMessageBegin:
			if c := data[i]; c == '\r' || c == '\n' {
				i++
				continue
			}

			p.state = eMethod
		case eMethod:
			c := data[i]
			i++

			if c == ' ' {
				p.method = method.Parse(uf.B2S(p.token[:p.tokenLen]))
				if p.method == method.Unknown {
					return p.fail(i-1, status.ErrMethodNotImplemented)
				}

				p.tokenLen = 0
				p.state = eURL
				continue
			}

			if c < 'A' || c > 'Z' {
				return p.fail(i-1, status.ErrBadRequestLine)
			}

			if p.tokenLen == maxMethodLen {
				return p.fail(i-1, status.ErrMethodNotImplemented)
			}

			p.token[p.tokenLen] = c
			p.tokenLen++
		case eURL:
			start := i
			for i < len(data) && isURLChar(data[i]) {
				i++
			}

			if i > start {
				if err = p.cb.OnURL(data[start:i]); err != nil {
					return p.fail(start, err)
				}
			}

			if i == len(data) {
				break
			}

			if data[i] != ' ' {
				return p.fail(i, status.ErrBadRequestLine)
			}

			i++
			p.state = eProto
		case eProto:
			c := data[i]
			i++

			switch c {
			case '\r':
				p.state = eProtoLF
			case '\n':
				p.state = eHeaderBegin
			default:
				if p.tokenLen == maxProtoLen {
					return p.fail(i-1, status.ErrHTTPVersionNotSupported)
				}

				p.token[p.tokenLen] = c
				p.tokenLen++
				continue
			}

			if err = p.parseProto(); err != nil {
				return p.fail(i-1, err)
			}
		case eProtoLF:
			if data[i] != '\n' {
				return p.fail(i, status.ErrBadRequestLine)
			}

			i++
			p.state = eHeaderBegin
		case eHeaderBegin:
			switch c := data[i]; {
			case c == '\r':
				i++
				p.state = eHeadersLF
			case c == '\n':
				i++
				if err = p.headersComplete(); err != nil {
					return p.complete(i, err)
				}
			case c == ' ' || c == '\t':
				// obsolete line folding
				return p.fail(i, status.ErrBadHeader)
			case isToken(c):
				p.nameLen = 0
				p.nameOverrun = false
				p.state = eHeaderName
			default:
				return p.fail(i, status.ErrBadHeader)
			}
		case eHeaderName:
			start := i
			for ; i < len(data) && isToken(data[i]); i++ {
				p.recordName(data[i])
			}

			if i > start {
				if err = p.cb.OnHeaderField(data[start:i]); err != nil {
					return p.fail(start, err)
				}
			}

			if i == len(data) {
				break
			}

			if data[i] != ':' {
				return p.fail(i, status.ErrBadHeader)
			}

			i++
			p.header = p.classify()
			p.valueLen = 0
			p.valueOverrun = false
			p.valueSeen = false
			p.state = eValueBegin
		case eValueBegin:
			if c := data[i]; c == ' ' || c == '\t' {
				i++
				continue
			}

			p.state = eValue
		case eValue:
			start := i
			for ; i < len(data) && isValueChar(data[i]); i++ {
				if p.header != hOther {
					p.recordValue(data[i])
				}
			}

			if i > start {
				if err = p.cb.OnHeaderValue(data[start:i]); err != nil {
					return p.fail(start, err)
				}

				p.valueSeen = true
			}

			if i == len(data) {
				break
			}

			if !p.valueSeen {
				// empty values are reported too, so every name has got its value
				if err = p.cb.OnHeaderValue(data[i:i]); err != nil {
					return p.fail(i, err)
				}
			}

			switch data[i] {
			case '\r':
				p.state = eValueLF
			case '\n':
				p.state = eHeaderBegin
				if err = p.finishHeader(); err != nil {
					return p.fail(i, err)
				}
			default:
				return p.fail(i, status.ErrBadHeader)
			}

			i++
		case eValueLF:
			if data[i] != '\n' {
				return p.fail(i, status.ErrBadHeader)
			}

			if err = p.finishHeader(); err != nil {
				return p.fail(i, err)
			}

			i++
			p.state = eHeaderBegin
		case eHeadersLF:
			if data[i] != '\n' {
				return p.fail(i, status.ErrBadHeader)
			}

			i++
			if err = p.headersComplete(); err != nil {
				return p.complete(i, err)
			}
		case eBody:
			size := min(int64(len(data)-i), p.bodyLeft)
			if !p.skip {
				if err = p.cb.OnBody(data[i : i+int(size)]); err != nil {
					return p.fail(i, err)
				}
			}

			i += int(size)
			p.bodyLeft -= size
			if p.bodyLeft == 0 {
				if err = p.messageComplete(); err != nil {
					return p.fail(i, err)
				}
			}
		case eChunked:
			chunk, extra, perr := p.chunks.Parse(data[i:], p.trailer)
			switch perr {
			case nil, io.EOF:
			default:
				return p.fail(i, status.ErrBadChunk)
			}

			if len(chunk) > 0 && !p.skip {
				if err = p.cb.OnBody(chunk); err != nil {
					return p.fail(i, err)
				}
			}

			consumed := len(data) - i - len(extra)
			if consumed <= 0 && len(chunk) == 0 && perr == nil {
				// the parser keeps the incomplete framing in its own state, so
				// everything is consumed anyway
				consumed = len(data) - i
			}

			i += consumed
			if perr == io.EOF {
				if err = p.messageComplete(); err != nil {
					return p.fail(i, err)
				}
			}
		case eUpgraded:
			return i, nil
		}
	}

	return i, nil
}

// Reset prepares the parser to a new stream.
func (p *Parser) Reset() {
	p.reset()
	p.state = eMessageBegin
	p.upgrade = false
}

func (p *Parser) fail(n int, err error) (int, error) {
	p.state = eDead

	return n, err
}

// complete handles errors returned by headersComplete. The upgrade is reported as a
// successful stop, everything else kills the parser.
func (p *Parser) complete(n int, err error) (int, error) {
	if err == errUpgrade {
		return n, nil
	}

	return p.fail(n, err)
}

func (p *Parser) parseProto() error {
	proto := p.token[:p.tokenLen]
	p.tokenLen = 0

	switch {
	case bytes.Equal(proto, []byte("HTTP/1.1")), bytes.Equal(proto, []byte("HTTP/1.0")):
	case bytes.HasPrefix(proto, []byte("HTTP/")):
		return status.ErrHTTPVersionNotSupported
	default:
		return status.ErrBadRequestLine
	}

	return nil
}

func (p *Parser) recordName(c byte) {
	if p.nameLen == len(p.name) {
		p.nameOverrun = true
		return
	}

	p.name[p.nameLen] = lower(c)
	p.nameLen++
}

func (p *Parser) classify() knownHeader {
	if p.nameOverrun {
		return hOther
	}

	return knownHeaders[uf.B2S(p.name[:p.nameLen])]
}

func (p *Parser) recordValue(c byte) {
	if p.valueLen == len(p.value) {
		p.valueOverrun = true
		return
	}

	p.value[p.valueLen] = lower(c)
	p.valueLen++
}

func (p *Parser) finishHeader() error {
	value := bytes.TrimRight(p.value[:p.valueLen], " \t")

	switch p.header {
	case hContentLength:
		if p.hasContentLength || p.valueOverrun || len(value) == 0 {
			return status.ErrBadContentLength
		}

		var length int64
		for _, c := range value {
			if c < '0' || c > '9' || length > maxContentSize {
				return status.ErrBadContentLength
			}

			length = length*10 + int64(c-'0')
		}

		p.contentLength = length
		p.hasContentLength = true
	case hTransferEncoding:
		if p.valueOverrun {
			return status.ErrBadHeader
		}

		// chunked must be the final coding, otherwise the body can't be framed
		codings := bytes.Split(value, []byte(","))
		last := bytes.TrimSpace(codings[len(codings)-1])
		p.hasEncoding = true
		p.chunked = bytes.Equal(last, []byte("chunked"))
	case hConnection:
		for _, option := range bytes.Split(value, []byte(",")) {
			if bytes.Equal(bytes.TrimSpace(option), []byte("upgrade")) {
				p.connUpgrade = true
			}
		}
	case hUpgrade:
		p.upgradeHeader = true
	case hTrailer:
		p.trailer = true
	}

	p.header = hOther

	return nil
}

func (p *Parser) headersComplete() error {
	if p.method == method.CONNECT || (p.upgradeHeader && p.connUpgrade) {
		p.upgrade = true
		p.state = eUpgraded

		return errUpgrade
	}

	if p.hasEncoding && (!p.chunked || p.hasContentLength) {
		return status.ErrBadRequest
	}

	skip, err := p.cb.OnHeadersComplete()
	if err != nil {
		return err
	}

	p.skip = skip

	switch {
	case p.chunked:
		if p.chunks == nil {
			p.chunks = chunkedbody.NewParser(chunkedbody.DefaultSettings())
		}

		p.state = eChunked
	case p.contentLength > 0:
		p.bodyLeft = p.contentLength
		p.state = eBody
	default:
		return p.messageComplete()
	}

	return nil
}

func (p *Parser) messageComplete() error {
	p.reset()
	p.state = eMessageBegin

	return p.cb.OnMessageComplete()
}

func (p *Parser) reset() {
	p.method = method.Unknown
	p.tokenLen = 0
	p.nameLen = 0
	p.valueLen = 0
	p.header = hOther
	p.contentLength = 0
	p.hasContentLength = false
	p.hasEncoding = false
	p.chunked = false
	p.trailer = false
	p.upgradeHeader = false
	p.connUpgrade = false
	p.skip = false
	p.bodyLeft = 0
}
