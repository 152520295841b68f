// Package response parses raw HTTP/1.1 response bytes.
package response

import (
	"bufio"
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/WhileEndless/go-hur/pkg/errors"
	"github.com/WhileEndless/go-hur/pkg/headers"
	"github.com/WhileEndless/go-hur/pkg/timing"
)

// Response is a parsed HTTP response.
type Response struct {
	Protocol     string           `json:"protocol"`
	StatusCode   int              `json:"status_code"`
	ReasonPhrase string           `json:"reason_phrase"`
	Headers      *headers.Headers `json:"headers"`
	Body         *string          `json:"body,omitempty"`

	// Server is the address that answered, set by the requester.
	Server  string          `json:"server,omitempty"`
	Timings *timing.Metrics `json:"timings,omitempty"`
}

// StatusLine returns "PROTOCOL CODE REASON".
func (r *Response) StatusLine() string {
	return fmt.Sprintf("%s %d %s", r.Protocol, r.StatusCode, r.ReasonPhrase)
}

// IsRedirect reports whether the status is 301, 302, 307 or 308.
func (r *Response) IsRedirect() bool {
	switch r.StatusCode {
	case 301, 302, 307, 308:
		return true
	}
	return false
}

// hasNoBody reports whether a response to method with this status never
// has a body. Responses to HEAD keep their Content-Length but carry no bytes.
func hasNoBody(method string, code int) bool {
	return method == "HEAD" || (code >= 100 && code < 200) || code == 204 || code == 304
}

// Parse parses raw, the answer to a method request, into a Response.
func Parse(raw []byte, method string) (*Response, error) {
	r := bufio.NewReader(bytes.NewReader(raw))

	statusLine, err := readLine(r)
	if err != nil {
		return nil, errors.NewProtocolError("response has no status line", errors.ErrMalformedStatusLine)
	}

	resp := &Response{}
	if err := parseStatusLine(statusLine, resp); err != nil {
		return nil, err
	}

	hs, err := readHeaders(r)
	if err != nil {
		return nil, err
	}
	resp.Headers = hs

	if err := readBody(r, method, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// readLine returns the next line without its terminator. A last line
// without terminator is returned without error.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func parseStatusLine(statusLine string, resp *Response) error {
	parts := strings.SplitN(statusLine, " ", 3)
	if len(parts) != 3 {
		return errors.NewProtocolError(fmt.Sprintf("invalid status line %q", statusLine), errors.ErrMalformedStatusLine)
	}

	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return errors.NewProtocolError(fmt.Sprintf("invalid status code %q", parts[1]), errors.ErrMalformedStatusLine)
	}

	resp.Protocol = parts[0]
	resp.StatusCode = code
	resp.ReasonPhrase = parts[2]
	return nil
}

// readHeaders reads up to the blank line, or to the end of input when the
// head is not terminated.
func readHeaders(r *bufio.Reader) (*headers.Headers, error) {
	hs := headers.New()
	for {
		line, err := readLine(r)
		if err == io.EOF || (err == nil && line == "") {
			return hs, nil
		}
		if err != nil {
			return nil, errors.NewProtocolError("reading headers", err)
		}

		key, value, ok := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.NewProtocolError(fmt.Sprintf("invalid header line %q", line), errors.ErrMalformedHeader)
		}
		hs.Add(key, strings.TrimSpace(value))
	}
}

func readBody(r *bufio.Reader, method string, resp *Response) error {
	if hasNoBody(method, resp.StatusCode) {
		return nil
	}

	codings := transferCodings(resp.Headers)
	switch {
	case len(codings) == 1 && codings[0] == "chunked":
		body, err := readChunkedBody(r)
		if err != nil {
			return err
		}
		resp.Body = &body
		return nil
	case len(codings) > 0:
		return errors.NewProtocolError(fmt.Sprintf("transfer-encoding %q", strings.Join(codings, ", ")), errors.ErrUnsupportedTransferEncoding)
	}

	if contentLength := resp.Headers.First("Content-Length"); contentLength != "" {
		length, err := strconv.ParseInt(strings.TrimSpace(contentLength), 10, 64)
		if err != nil || length < 0 {
			return errors.NewProtocolError(fmt.Sprintf("invalid content-length %q", contentLength), errors.ErrMalformedHeader)
		}
		body, err := readFixedBody(r, length)
		if err != nil {
			return err
		}
		resp.Body = &body
		return nil
	}

	rest, _ := io.ReadAll(r)
	if len(rest) > 0 {
		body := string(rest)
		resp.Body = &body
	}
	return nil
}

// transferCodings lists the lower-cased codings of every Transfer-Encoding
// value.
func transferCodings(hs *headers.Headers) []string {
	var codings []string
	for _, v := range hs.Get("Transfer-Encoding") {
		for _, c := range strings.Split(v, ",") {
			if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
				codings = append(codings, c)
			}
		}
	}
	return codings
}

// readFixedBody takes exactly length bytes. Bytes past length are ignored.
func readFixedBody(r *bufio.Reader, length int64) (string, error) {
	var body bytes.Buffer
	if _, err := io.CopyN(&body, r, length); err != nil {
		return "", errors.NewProtocolError(fmt.Sprintf("expected %d body bytes, got %d", length, body.Len()), errors.ErrTruncatedBody)
	}
	if !utf8.Valid(body.Bytes()) {
		return "", errors.NewProtocolError("decoding body", errors.ErrInvalidBodyEncoding)
	}
	return body.String(), nil
}

func readChunkedBody(r *bufio.Reader) (string, error) {
	var body bytes.Buffer

	line, err := readLine(r)
	for err == nil && strings.TrimSpace(line) == "" {
		line, err = readLine(r)
	}

	for {
		if err != nil {
			return "", chunkError("reading chunk size", err)
		}

		sizeField, _, _ := strings.Cut(line, ";")
		size, err := HexToDecimal(strings.TrimSpace(sizeField))
		if err != nil {
			return "", chunkError(fmt.Sprintf("invalid chunk size %q", line), err)
		}
		if size == 0 {
			break
		}

		if _, err := io.CopyN(&body, r, size); err != nil {
			return "", chunkError("reading chunk data", err)
		}
		if crlf, err := readLine(r); err != nil || crlf != "" {
			return "", chunkError("missing CRLF after chunk data", err)
		}

		line, err = readLine(r)
	}

	// Trailers are read and dropped.
	for {
		trailer, err := readLine(r)
		if err != nil || trailer == "" {
			break
		}
	}

	if !utf8.Valid(body.Bytes()) {
		return "", errors.NewProtocolError("decoding chunked body", errors.ErrInvalidBodyEncoding)
	}
	return body.String(), nil
}

func chunkError(msg string, cause error) error {
	if cause == nil {
		return errors.NewProtocolError(msg, errors.ErrMalformedChunk)
	}
	return errors.NewProtocolError(msg, fmt.Errorf("%w: %w", errors.ErrMalformedChunk, cause))
}

var errHexDigit = stderrors.New("invalid hex digit")

// HexToDecimal converts a hexadecimal chunk size such as "3B" or "e7a9".
func HexToDecimal(s string) (int64, error) {
	if s == "" {
		return 0, stderrors.New("empty hex number")
	}
	digits := strings.TrimLeft(s, "0")
	if digits == "" {
		return 0, nil
	}
	if len(digits) > 15 {
		return 0, fmt.Errorf("hex number %q too large", s)
	}

	var n int64
	for _, c := range digits {
		var d int64
		switch {
		case c >= '0' && c <= '9':
			d = int64(c - '0')
		case c >= 'a' && c <= 'f':
			d = int64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = int64(c-'A') + 10
		default:
			return 0, fmt.Errorf("%w %q in %q", errHexDigit, c, s)
		}
		n = n*16 + d
	}
	return n, nil
}
