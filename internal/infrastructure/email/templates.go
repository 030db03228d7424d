package email

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/jhoicas/taskvault-api/internal/application/ports"
)

type mailTemplate struct {
	subject string
	body    *template.Template
}

const layout = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{template "title" .}}</title></head>
<body style="margin:0;padding:0;font-family:Arial,sans-serif;background-color:#f4f4f4;">
  <table role="presentation" style="width:100%;border-collapse:collapse;">
    <tr><td align="center" style="padding:40px 0;">
      <table role="presentation" style="width:600px;background-color:#ffffff;border-radius:8px;">
        <tr><td style="padding:32px 30px;text-align:center;background-color:#4F46E5;border-radius:8px 8px 0 0;">
          <h1 style="margin:0;color:#ffffff;font-size:24px;">{{template "title" .}}</h1>
        </td></tr>
        <tr><td style="padding:32px 30px;font-size:16px;line-height:24px;color:#333333;">{{template "content" .}}</td></tr>
        <tr><td style="padding:20px;text-align:center;background-color:#f8f8f8;font-size:12px;color:#999999;border-radius:0 0 8px 8px;">TaskVault</td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`

func mustTemplate(name, title, content string) *template.Template {
	t := template.Must(template.New(name).Option("missingkey=zero").Parse(layout))
	template.Must(t.New("title").Parse(title))
	template.Must(t.New("content").Parse(content))
	return t
}

var templates = map[string]mailTemplate{
	ports.TemplateEmailVerification: {
		subject: "Código de verificación",
		body: mustTemplate(ports.TemplateEmailVerification, "Verifica tu email", `
<p>Hola {{.name}},</p>
<p>Tu código de verificación es:</p>
<p style="font-size:32px;font-weight:bold;letter-spacing:8px;text-align:center;">{{.code}}</p>
<p style="color:#666666;font-size:14px;">Vence en {{.minutes}} minutos.</p>`),
	},
	ports.TemplateSubscriptionActivated: {
		subject: "Suscripción activada",
		body: mustTemplate(ports.TemplateSubscriptionActivated, "Suscripción activada", `
<p>Hola {{.name}},</p>
<p>Recibimos el pago de {{.amount}} {{.currency}}. Tu organización ya tiene el plan vitalicio.</p>
<p style="color:#666666;font-size:14px;">Orden {{.order_id}} · Pago {{.payment_id}}</p>`),
	},
	ports.TemplatePaymentFailed: {
		subject: "El pago no se completó",
		body: mustTemplate(ports.TemplatePaymentFailed, "Pago fallido", `
<p>Hola {{.name}},</p>
<p>El pago de la orden {{.order_id}} no se completó{{if .reason}}: {{.reason}}{{end}}.</p>
<p>Puedes intentarlo de nuevo desde la sección de facturación.</p>`),
	},
}

// Render asunto y HTML de la notificación.
func Render(n ports.Notification) (subject, html string, err error) {
	tpl, ok := templates[n.Template]
	if !ok {
		return "", "", fmt.Errorf("plantilla desconocida %q", n.Template)
	}
	data := map[string]string{}
	for k, v := range n.Data {
		data[k] = v
	}
	var buf bytes.Buffer
	if err := tpl.body.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", n.Template, err)
	}
	return tpl.subject, buf.String(), nil
}
