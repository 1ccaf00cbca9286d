package invoice

import (
	"bytes"
	"fmt"
	"mime"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/yusufsyaifudin/tagihan/pkg/mailaddr"
)

// Template keys filled from Payee. They win over record columns of the same name.
const (
	KeyPayeeName    = "saaja"
	KeyPayeeBank    = "pankki"
	KeyPayeeAccount = "tilinumero"
)

// DefaultDetails is the invoice detail block. Keys are record columns or payee keys.
const DefaultDetails = `
Selite: {{.selite}}
Saaja: {{.saaja}}
Pankkiyhteys: {{.pankki}}
Tilinumero: {{.tilinumero}}
Viitenumero: {{.viitenro}}
Summa: {{.summa}}
Eräpäivä: {{.eräpäivä}}
`

const DefaultFooter = "\n\nParhain terveisin,\n  PKY\n"

// Payee is the receiving side of the invoice, the same for every message.
type Payee struct {
	Name    string `yaml:"name"`
	Bank    string `yaml:"bank"`
	Account string `yaml:"account"`
}

type ComposerConfig struct {
	Details   string
	Footer    string
	Payee     Payee
	MessageID func() (string, error)
}

// Composer builds one Envelope per invoice row.
type Composer struct {
	details   *template.Template
	footer    string
	payee     Payee
	messageID func() (string, error)
}

func NewComposer(cfg ComposerConfig) (*Composer, error) {
	if cfg.Details == "" {
		cfg.Details = DefaultDetails
	}

	details, err := template.New("details").Option("missingkey=error").Parse(cfg.Details)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTemplate, err)
	}

	return &Composer{
		details:   details,
		footer:    cfg.Footer,
		payee:     cfg.Payee,
		messageID: cfg.MessageID,
	}, nil
}

// Headers are the parts of an envelope shared by every message of a group.
type Headers struct {
	From    mailaddr.Address
	Cc      []mailaddr.Address
	Bcc     []mailaddr.Address
	Subject string
	Extra   map[string]string
}

// Subject prepends prefix and a single space to text, when prefix is set.
func Subject(prefix, text string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return text
	}

	return prefix + " " + text
}

// Compose fills the detail template with rec and addresses the result to the
// record's email column.
func (c *Composer) Compose(headers Headers, greeting string, rec Record) (*Envelope, error) {
	email, err := rec.Value(ColumnEmail)
	if err != nil {
		return nil, err
	}

	to, err := mailaddr.Split(email)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", rec.Line(), err)
	}

	data := rec.Fields()
	data[KeyPayeeName] = c.payee.Name
	data[KeyPayeeBank] = c.payee.Bank
	data[KeyPayeeAccount] = c.payee.Account

	var details strings.Builder
	if err = c.details.Execute(&details, data); err != nil {
		return nil, fmt.Errorf("%w: line %d: %s", ErrTemplate, rec.Line(), err)
	}

	env := &Envelope{
		From:    headers.From,
		To:      to,
		Cc:      headers.Cc,
		Bcc:     headers.Bcc,
		Subject: headers.Subject,
		Body:    greeting + "\n" + details.String() + c.footer,
		Extra:   headers.Extra,
		Date:    now(),
	}

	if c.messageID != nil {
		env.MessageID, err = c.messageID()
		if err != nil {
			return nil, fmt.Errorf("error generate message id: %w", err)
		}
	}

	return env, nil
}

// Envelope is one composed message for a single recipient.
type Envelope struct {
	From      mailaddr.Address
	To        mailaddr.Address
	Cc        []mailaddr.Address
	Bcc       []mailaddr.Address
	Subject   string
	Body      string
	Extra     map[string]string
	MessageID string
	Date      time.Time
}

// Recipients is the SMTP recipient list: To, then every Cc and Bcc.
func (e *Envelope) Recipients() []string {
	rcpts := make([]string, 0, 1+len(e.Cc)+len(e.Bcc))
	rcpts = append(rcpts, e.To.Email)
	rcpts = append(rcpts, mailaddr.Emails(e.Cc...)...)
	rcpts = append(rcpts, mailaddr.Emails(e.Bcc...)...)
	return rcpts
}

// Bytes serializes the message as UTF-8 text/plain with a quoted-printable
// body. Bcc is never written, it only shows up in Recipients.
func (e *Envelope) Bytes() ([]byte, error) {
	var h mail.Header
	h.SetDate(e.Date)
	h.Set("From", mailaddr.Render(e.From))
	h.Set("To", mailaddr.Render(e.To))
	if len(e.Cc) > 0 {
		h.Set("Cc", mailaddr.Render(e.Cc...))
	}

	h.SetSubject(e.Subject)
	if e.MessageID != "" {
		h.SetMessageID(e.MessageID)
	}

	for _, key := range e.extraKeys() {
		h.Set(key, mime.QEncoding.Encode("utf-8", e.Extra[key]))
	}

	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("error create message writer: %w", err)
	}

	if _, err = w.Write([]byte(e.Body)); err != nil {
		return nil, fmt.Errorf("error write message body: %w", err)
	}

	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("error close message writer: %w", err)
	}

	return buf.Bytes(), nil
}

// Preview is the message as a person should read it: decoded headers,
// including Bcc, and the plain body.
func (e *Envelope) Preview() string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\n", mailaddr.Display(e.From))
	fmt.Fprintf(&b, "To: %s\n", mailaddr.Display(e.To))
	if len(e.Cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\n", mailaddr.Display(e.Cc...))
	}

	if len(e.Bcc) > 0 {
		fmt.Fprintf(&b, "Bcc: %s\n", mailaddr.Display(e.Bcc...))
	}

	fmt.Fprintf(&b, "Subject: %s\n", e.Subject)
	for _, key := range e.extraKeys() {
		fmt.Fprintf(&b, "%s: %s\n", key, e.Extra[key])
	}

	b.WriteString("\n")
	b.WriteString(e.Body)
	return b.String()
}

func (e *Envelope) extraKeys() []string {
	keys := make([]string, 0, len(e.Extra))
	for key := range e.Extra {
		keys = append(keys, key)
	}

	sort.Strings(keys)
	return keys
}
