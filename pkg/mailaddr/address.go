// Package mailaddr splits free-text "display name + address" strings into a
// structured Address and renders addresses back into header text that survives
// the transport (RFC 2047 encoded words for non-ASCII names).
//
// The accepted input is deliberately loose because it comes from spreadsheet
// cells and command line flags:
//
//	foo@bar.com                  -> ("", "foo@bar.com")
//	Foo Bar foo@bar.com          -> ("Foo Bar", "foo@bar.com")
//	  "Foo Bar" <foo@bar.com>,   -> ("Foo Bar", "foo@bar.com")
//	Bar, Foo <foo@bar.com>       -> ("Bar, Foo", "foo@bar.com")
//
// The email is always the last whitespace separated token, so multi-word
// names need no quoting, but a name can never follow the address.
package mailaddr

import (
	"errors"
	"fmt"
	"mime"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	ErrAddressFormat = errors.New("invalid email address")
)

// Address is a display name and email pair. Name may be empty.
type Address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// String renders the address the same way Render does.
func (a Address) String() string {
	return Render(a)
}

var wordDecoder = new(mime.WordDecoder)

// Split parses text into an Address. It fails with ErrAddressFormat when no
// email-like token can be found.
func Split(text string) (Address, error) {
	trimmed := strings.TrimRightFunc(strings.TrimSpace(text), func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})

	idx := strings.LastIndexFunc(trimmed, unicode.IsSpace)
	token := trimmed[idx+1:]

	email, start, ok := extractEmail(token)
	if !ok {
		return Address{}, fmt.Errorf("%w: '%s'", ErrAddressFormat, text)
	}

	// "Foo Bar"<foo@bar.com> has the tail of the name glued to the address token
	rawName := trimmed[:idx+1]
	if prefix := token[:start]; strings.HasSuffix(prefix, "<") {
		rawName += prefix
	}

	return Address{Name: cleanName(rawName), Email: email}, nil
}

// MustSplit is like Split but panics when text holds no address.
func MustSplit(text string) Address {
	addr, err := Split(text)
	if err != nil {
		panic(err)
	}

	return addr
}

// extractEmail finds local@domain inside a single token: the local part runs
// back from the last '@' until a bracket, quote or separator, the domain runs
// forward until one and is then cut back to its last ASCII letter.
func extractEmail(token string) (email string, start int, ok bool) {
	at := strings.LastIndexByte(token, '@')
	if at < 0 {
		return
	}

	start = at
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(token[:start])
		if isEmailBoundary(r) || r == '@' {
			break
		}

		start -= size
	}

	end := at + 1
	for end < len(token) {
		r, size := utf8.DecodeRuneInString(token[end:])
		if isEmailBoundary(r) {
			break
		}

		end += size
	}

	domain := token[at+1 : end]
	lastLetter := strings.LastIndexFunc(domain, isASCIILetter)
	if lastLetter < 0 {
		return
	}

	domain = domain[:lastLetter+1]
	local := token[start:at]
	if local == "" {
		return
	}

	return local + "@" + domain, start, true
}

func isEmailBoundary(r rune) bool {
	switch r {
	case '<', '>', '"', '\'', '(', ')', '[', ']', ',', ';', ':':
		return true
	}

	return unicode.IsSpace(r)
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// cleanName drops surrounding punctuation, quotes and whitespace. A fully
// quoted name is unquoted instead so inner punctuation survives, and RFC 2047
// encoded words produced by Render are decoded.
func cleanName(raw string) string {
	raw = strings.TrimFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || r == '<' || r == ',' || r == ';'
	})

	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		if name := strings.TrimSpace(unquote(raw[1 : len(raw)-1])); name != "" {
			return name
		}
	}

	if strings.Contains(raw, "=?") {
		if decoded, err := wordDecoder.DecodeHeader(raw); err == nil {
			raw = decoded
		}
	}

	return strings.TrimFunc(raw, isNameTrim)
}

func unquote(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}

		escaped = false
		b.WriteRune(r)
	}

	return b.String()
}

func isNameTrim(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || (r < utf8.RuneSelf && unicode.IsSymbol(r))
}

// Render joins addresses with ", ". Each one is "Name <email>" when a name is
// present and the bare email otherwise.
func Render(addrs ...Address) string {
	parts := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if addr.Name == "" {
			parts = append(parts, addr.Email)
			continue
		}

		parts = append(parts, encodeName(addr.Name)+" <"+addr.Email+">")
	}

	return strings.Join(parts, ", ")
}

// Display is Render without any header encoding, for showing to a person.
func Display(addrs ...Address) string {
	parts := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if addr.Name == "" {
			parts = append(parts, addr.Email)
			continue
		}

		parts = append(parts, addr.Name+" <"+addr.Email+">")
	}

	return strings.Join(parts, ", ")
}

const specials = `()<>[]:;@\,."`

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func encodeName(name string) string {
	ascii := true
	for i := 0; i < len(name); i++ {
		if name[i] >= utf8.RuneSelf || name[i] < ' ' {
			ascii = false
			break
		}
	}

	switch {
	case ascii && !strings.ContainsAny(name, specials):
		return name
	case ascii:
		return `"` + quoteEscaper.Replace(name) + `"`
	case strings.ContainsAny(name, specials):
		// Q-encoded words keep ASCII specials verbatim, which is not allowed in a phrase
		return mime.BEncoding.Encode("utf-8", name)
	default:
		return mime.QEncoding.Encode("utf-8", name)
	}
}

// Emails returns the bare email of every address.
func Emails(addrs ...Address) []string {
	emails := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		emails = append(emails, addr.Email)
	}

	return emails
}
