package mailer

import (
	"bytes"
	"html/template"
)

var publicLinkTmpl = template.Must(template.New("link").Parse(`<p>Olá, {{.Client}}.</p>
<p>Acompanhe a ordem de serviço #{{.OrderID}} da {{.Shop}} pelo link abaixo:</p>
<p><a href="{{.URL}}">{{.URL}}</a></p>
<p>O link expira em {{.Expires}}.</p>`))

// PublicLinkData fills the public order link email
type PublicLinkData struct {
	Shop    string
	Client  string
	OrderID uint
	URL     string
	Expires string
}

// PublicLinkBody renders the HTML body announcing a public order link
func PublicLinkBody(d PublicLinkData) (string, error) {
	var buf bytes.Buffer
	if err := publicLinkTmpl.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
