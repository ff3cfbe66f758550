package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/cockroachdb/apd/v3"

	"github.com/tjfontaine/estimate-executor/internal/pricing"
)

//go:embed templates/*.html
var templateFS embed.FS

// Contact is the lead's contact details as submitted.
type Contact struct {
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	Phone         string            `json:"phone"`
	StreetAddress string            `json:"street_address"`
	Extra         map[string]string `json:"extra"`
}

// Estimate is the data behind an estimate email.
type Estimate struct {
	CompanyName string
	ServiceName string
	Details     []pricing.Detail
	Quote       pricing.Quote
	Contact     Contact
}

// Renderer produces subjects and HTML bodies.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("email").Funcs(template.FuncMap{
		"cents": pricing.Cents,
		"whole": func(d *apd.Decimal) string { return d.Text('f') },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Estimate renders the email a company receives for a priced lead.
func (r *Renderer) Estimate(e Estimate) (subject, html string, err error) {
	html, err = r.execute("estimate.html", e)
	if err != nil {
		return "", "", err
	}
	subject = fmt.Sprintf("💰 %s estimate for %s: $%s", e.ServiceName, e.Contact.Name, e.Quote.RoundedPriceAfterInflation.Text('f'))
	return subject, html, nil
}

// ContactRequest renders the email for a plain contact form.
func (r *Renderer) ContactRequest(c Contact) (subject, html string, err error) {
	html, err = r.execute("contact_request.html", c)
	if err != nil {
		return "", "", err
	}
	return "📞 Contact request from " + c.Name, html, nil
}

func (r *Renderer) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
