package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strings"
	texttemplate "text/template"
	"time"
)

// DecisionMailer tells an applicant about the final outcome of their review.
type DecisionMailer interface {
	SendDecision(ctx context.Context, mail DecisionMail) error
}

type DecisionMail struct {
	To       string
	Name     string
	Approved bool
	Username string
	Remarks  string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	FromName   string
	UseSSL     bool // implicit TLS, usually 465
	RequireTLS bool // fail when STARTTLS is not offered
	AppName    string
}

// NewDecisionMailer returns a no-op mailer when no SMTP host is configured.
func NewDecisionMailer(cfg SMTPConfig) DecisionMailer {
	if cfg.Host == "" {
		return nopMailer{}
	}
	return &smtpMailer{
		cfg:  cfg,
		html: template.Must(template.New("decisionHTML").Parse(decisionHTMLTemplate)),
		text: texttemplate.Must(texttemplate.New("decisionText").Parse(decisionTextTemplate)),
		now:  time.Now,
	}
}

type nopMailer struct{}

func (nopMailer) SendDecision(context.Context, DecisionMail) error { return nil }

type smtpMailer struct {
	cfg  SMTPConfig
	html *template.Template
	text *texttemplate.Template
	now  func() time.Time
}

type decisionView struct {
	DecisionMail
	AppName string
	Year    int
}

const decisionHTMLTemplate = `<!doctype html>
<html>
<head><meta charset="UTF-8"><title>{{.AppName}} membership</title></head>
<body style="font-family:Helvetica,Arial,sans-serif;color:#0f172a">
  <h2>Hi {{.Name}},</h2>
  {{if .Approved}}
  <p>Your membership application has been approved.</p>
  <p>Your member username is <strong>{{.Username}}</strong>. You can use it to sign in from now on.</p>
  {{else}}
  <p>Your membership application was not approved.</p>
  {{if .Remarks}}<p>Reviewer remarks: {{.Remarks}}</p>{{end}}
  {{end}}
  <p style="color:#64748b;font-size:13px">&copy; {{.Year}} {{.AppName}}</p>
</body>
</html>`

const decisionTextTemplate = `Hi {{.Name}},

{{if .Approved}}Your membership application has been approved.
Your member username is {{.Username}}. You can use it to sign in from now on.
{{else}}Your membership application was not approved.
{{if .Remarks}}Reviewer remarks: {{.Remarks}}
{{end}}{{end}}
{{.AppName}} (c) {{.Year}}
`

func decisionSubject(appName string, approved bool) string {
	if approved {
		return appName + ": membership approved"
	}
	return appName + ": membership application update"
}

func (s *smtpMailer) render(mail DecisionMail) (string, string, error) {
	view := decisionView{DecisionMail: mail, AppName: s.cfg.AppName, Year: s.now().Year()}
	var hb, tb bytes.Buffer
	if err := s.html.Execute(&hb, view); err != nil {
		return "", "", err
	}
	if err := s.text.Execute(&tb, view); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}

func (s *smtpMailer) SendDecision(ctx context.Context, mail DecisionMail) error {
	htmlBody, textBody, err := s.render(mail)
	if err != nil {
		return fmt.Errorf("render decision mail: %w", err)
	}
	msg := s.compose(mail.To, decisionSubject(s.cfg.AppName, mail.Approved), htmlBody, textBody)
	return s.send(ctx, mail.To, msg)
}

func (s *smtpMailer) compose(to, subject, htmlBody, textBody string) []byte {
	boundary := fmt.Sprintf("alt_%d", s.now().UnixNano())
	from := s.cfg.From
	if name := strings.TrimSpace(s.cfg.FromName); name != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", name), s.cfg.From)
	}

	var msg bytes.Buffer
	write := func(format string, a ...any) { _, _ = fmt.Fprintf(&msg, format, a...) }
	write("From: %s\r\n", from)
	write("To: %s\r\n", to)
	write("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	write("Date: %s\r\n", s.now().Format(time.RFC1123Z))
	write("MIME-Version: 1.0\r\n")
	write("Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	write("--%s\r\n", boundary)
	write("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	write("%s\r\n\r\n", textBody)

	write("--%s\r\n", boundary)
	write("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	write("%s\r\n\r\n", htmlBody)
	write("--%s--\r\n", boundary)
	return msg.Bytes()
}

func (s *smtpMailer) send(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	tlsCfg := &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	var (
		conn net.Conn
		err  error
	)
	if s.cfg.UseSSL {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsCfg}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer c.Quit()

	if !s.cfg.UseSSL {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsCfg); err != nil {
				return err
			}
		} else if s.cfg.RequireTLS {
			return fmt.Errorf("smtp server %s does not offer STARTTLS", s.cfg.Host)
		}
	}

	if s.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}
