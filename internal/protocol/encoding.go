package protocol

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// MaxBodySize caps how much of a (decompressed) response body is read
const MaxBodySize = 1 << 20

// ReadBody reads a response body, undoing the Content-Encoding the cloud chose.
//
// The client advertises its own Accept-Encoding, so net/http leaves compressed
// bodies untouched and decoding happens here.
func ReadBody(resp *http.Response) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	r, closer, err := decodingReader(encoding, resp.Body)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	body, err := io.ReadAll(io.LimitReader(r, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s body: %w", encodingName(encoding), err)
	}
	if len(body) > MaxBodySize {
		return nil, fmt.Errorf("response body exceeds %d bytes", MaxBodySize)
	}
	return body, nil
}

func decodingReader(encoding string, body io.Reader) (io.Reader, io.Closer, error) {
	switch encoding {
	case "", "identity":
		return body, nil, nil

	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid gzip body: %w", err)
		}
		return zr, zr, nil

	case "deflate":
		// RFC 9110 deflate is zlib-wrapped, but some servers send raw deflate.
		br := bufio.NewReader(body)
		header, err := br.Peek(2)
		if err == nil && isZlibHeader(header) {
			zr, err := zlib.NewReader(br)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid zlib body: %w", err)
			}
			return zr, zr, nil
		}
		fr := flate.NewReader(br)
		return fr, fr, nil

	case "br":
		return brotli.NewReader(body), nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported Content-Encoding %q", encoding)
	}
}

func isZlibHeader(b []byte) bool {
	cmf, flg := b[0], b[1]
	return cmf&0x0f == 8 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}

func encodingName(encoding string) string {
	if encoding == "" {
		return "plain"
	}
	return encoding
}
