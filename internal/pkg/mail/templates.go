package mail

import (
	"bytes"
	"html/template"
)

var verifyTpl = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Verify your email</h2>
  <p>Hi {{.Name}},</p>
  <p>Thanks for signing up. Click the link below to verify your email address:</p>
  <p><a href="{{.Link}}">{{.Link}}</a></p>
  <p>This link expires in 24 hours. If you did not create an account, you can ignore this email.</p>
</body>
</html>`))

var contactTpl = template.Must(template.New("contact").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>New contact message</h2>
  <p><strong>From:</strong> {{.Name}} &lt;{{.Email}}&gt;</p>
  <p><strong>Subject:</strong> {{.Subject}}</p>
  <hr>
  <p>{{.Body}}</p>
</body>
</html>`))

// VerificationMessage builds the email sent after registration.
func VerificationMessage(to, name, link string) (Message, error) {
	var buf bytes.Buffer
	err := verifyTpl.Execute(&buf, struct {
		Name string
		Link string
	}{name, link})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{to},
		Subject: "Verify your email address",
		HTML:    buf.String(),
	}, nil
}

// ContactNotification builds the notification sent to the site owner when a
// visitor submits the contact form.
func ContactNotification(to, name, email, subject, body string) (Message, error) {
	var buf bytes.Buffer
	err := contactTpl.Execute(&buf, struct {
		Name    string
		Email   string
		Subject string
		Body    string
	}{name, email, subject, body})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{to},
		Subject: "New contact message: " + subject,
		HTML:    buf.String(),
	}, nil
}
