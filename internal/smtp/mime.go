package smtp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// ParsedEmail holds the parts of an inbound message the mailbox keeps.
type ParsedEmail struct {
	Subject string
	From    string
	To      string
	Text    string
	HTML    string
}

// ParseEmail extracts subject, plain text and HTML from a raw RFC 5322
// message. Attachments and other parts are skipped; the mailbox record
// only stores text content.
func ParseEmail(raw []byte) (*ParsedEmail, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse mail: %w", err)
	}

	parsed := &ParsedEmail{
		Subject: decodeHeader(msg.Header.Get("Subject")),
		From:    msg.Header.Get("From"),
		To:      msg.Header.Get("To"),
	}

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil {
		// no Content-Type or unparseable: treat the body as plain text
		body, _ := io.ReadAll(msg.Body)
		parsed.Text = string(body)
		return parsed, nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message without boundary")
		}
		if err := parseMultipart(multipart.NewReader(msg.Body, boundary), parsed); err != nil {
			return nil, fmt.Errorf("parse multipart: %w", err)
		}
		return parsed, nil
	}

	body, err := decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"), params["charset"])
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if strings.HasPrefix(mediaType, "text/html") {
		parsed.HTML = body
	} else {
		parsed.Text = body
	}
	return parsed, nil
}

// parseMultipart walks the parts, keeping the first text/plain and
// text/html bodies and descending into nested multiparts.
func parseMultipart(mr *multipart.Reader, parsed *ParsedEmail) error {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		mediaType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			mediaType = "text/plain"
		}

		switch {
		case strings.HasPrefix(mediaType, "multipart/"):
			boundary := params["boundary"]
			if boundary == "" {
				continue
			}
			if err := parseMultipart(multipart.NewReader(part, boundary), parsed); err != nil {
				return err
			}
		case strings.HasPrefix(mediaType, "text/plain") && parsed.Text == "":
			body, err := decodeBody(part, part.Header.Get("Content-Transfer-Encoding"), params["charset"])
			if err != nil {
				return err
			}
			parsed.Text = body
		case strings.HasPrefix(mediaType, "text/html") && parsed.HTML == "":
			body, err := decodeBody(part, part.Header.Get("Content-Transfer-Encoding"), params["charset"])
			if err != nil {
				return err
			}
			parsed.HTML = body
		}
	}
}

// decodeBody applies the transfer encoding, then the charset.
func decodeBody(r io.Reader, transferEncoding, charset string) (string, error) {
	switch strings.ToLower(transferEncoding) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}

	if enc := encodingFor(charset); enc != nil {
		r = transform.NewReader(r, enc.NewDecoder())
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// encodingFor maps the common non-UTF-8 mail charsets. UTF-8 and unknown
// charsets pass through undecoded.
func encodingFor(charset string) encoding.Encoding {
	switch strings.ToLower(charset) {
	case "gbk", "gb2312":
		return simplifiedchinese.GBK
	case "gb18030":
		return simplifiedchinese.GB18030
	case "big5":
		return traditionalchinese.Big5
	case "iso-2022-jp":
		return japanese.ISO2022JP
	case "euc-jp":
		return japanese.EUCJP
	case "shift_jis", "shift-jis", "sjis":
		return japanese.ShiftJIS
	case "euc-kr":
		return korean.EUCKR
	default:
		return nil
	}
}

// decodeHeader unfolds RFC 2047 encoded words, falling back to the raw
// value when decoding fails.
func decodeHeader(value string) string {
	if value == "" {
		return value
	}
	decoder := new(mime.WordDecoder)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		if enc := encodingFor(charset); enc != nil {
			return transform.NewReader(input, enc.NewDecoder()), nil
		}
		return nil, fmt.Errorf("unhandled charset %q", charset)
	}
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
