package email

import (
	"html/template"
	"strings"
)

var summaryTemplate = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Conversation Summary {{.CaseID}}</title>
</head>
<body style="font-family: Arial, sans-serif; color: #333; line-height: 1.6;">
    <p>Dear <strong>{{.Name}}</strong>,</p>
    <p>Thank you for contacting us. Please find below a summary of our conversation today for your reference.</p>

    <h3 style="color: #005f75;">Client Details:</h3>
    <ul>
        <li><strong>Client ID:</strong> {{.ClientID}}</li>
        <li><strong>Name:</strong> {{.Name}}</li>
        <li><strong>Email:</strong> {{.Email}}</li>
    </ul>

    <h3 style="color: #005f75;">Conversation Summary:</h3>
    <div style="background-color: #f9f9f9; padding: 15px; border-left: 4px solid #005f75;">
        {{.Summary}}
    </div>

    <p>If you have any additional questions or need more information, please don't hesitate to contact us.</p>
    <p>You can reach us by email at <a href="mailto:support@yourcompany.com">support@yourcompany.com</a>,
    or visit our website at <a href="https://www.yourcompany.com">www.yourcompany.com</a> for more information.
    Our support hours are Monday to Friday, 9:00 AM to 6:00 PM.</p>

    <p>We remain at your disposal and appreciate the opportunity to assist you.</p>
    <p>Best regards,<br><strong>The Support Team</strong></p>
</body>
</html>`))

func summaryHTML(caseID, name, email, clientID, summary string) (string, error) {
	var b strings.Builder
	err := summaryTemplate.Execute(&b, struct {
		CaseID, Name, Email, ClientID, Summary string
	}{caseID, name, email, clientID, summary})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
