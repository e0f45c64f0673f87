package legacymedia

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var ErrMalformedDataURL = errors.New("malformed data url")

// DecodeDataURL decodes a data: URL into its payload and media type. When the
// URL omits the media type it is sniffed from the payload.
func DecodeDataURL(raw string) ([]byte, string, error) {
	if len(raw) < 5 || !strings.EqualFold(raw[:5], "data:") {
		return nil, "", fmt.Errorf("%w: missing data: scheme", ErrMalformedDataURL)
	}

	header, payload, ok := strings.Cut(raw[5:], ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing payload separator", ErrMalformedDataURL)
	}

	params := strings.Split(header, ";")
	mediaType := strings.ToLower(strings.TrimSpace(params[0]))
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}

	var data []byte
	if isBase64 {
		clean := strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
				return -1
			}
			return r
		}, payload)
		decoded, err := decodeBase64(clean)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrMalformedDataURL, err)
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrMalformedDataURL, err)
		}
		data = []byte(unescaped)
	}

	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty payload", ErrMalformedDataURL)
	}
	if mediaType == "" {
		mediaType = mimetype.Detect(data).String()
		if i := strings.IndexByte(mediaType, ';'); i >= 0 {
			mediaType = mediaType[:i]
		}
	}
	return data, mediaType, nil
}

// decodeBase64 accepts both padded and unpadded standard encodings, plus the
// URL-safe alphabet some older clients produced.
func decodeBase64(s string) ([]byte, error) {
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	if data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
