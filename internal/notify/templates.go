package notify

import "fmt"

type emailTemplate struct {
	Subject string
	HTML    string
	Text    string
}

func confirmationTemplate(name, confirmURL string) emailTemplate {
	return emailTemplate{
		Subject: "Please confirm your petition signature",
		HTML: fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background: #f8f9fa; padding: 30px; border-radius: 8px; text-align: center;">
    <h1 style="color: #2c3e50;">Thank you for signing!</h1>
    <p>Hi %s,</p>
    <p>Thank you for adding your voice to our petition. To complete your signature, please click the button below:</p>
    <a href="%s" style="display: inline-block; background: #007bff; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; font-weight: bold;">Confirm Your Signature</a>
    <p style="font-size: 14px; color: #666;">If the button doesn't work, copy and paste this link into your browser:<br><a href="%s">%s</a></p>
    <p style="font-size: 12px; color: #999;">This confirmation link will expire in 24 hours.</p>
  </div>
</body>
</html>`, name, confirmURL, confirmURL, confirmURL),
		Text: fmt.Sprintf(`Thank you for signing!

Hi %s,

Thank you for adding your voice to our petition. To complete your signature, please visit this link:

%s

This confirmation link will expire in 24 hours.

Best regards,
The Petition Team`, name, confirmURL),
	}
}

func thankYouTemplate(name string) emailTemplate {
	return emailTemplate{
		Subject: "Your signature has been confirmed!",
		HTML: fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background: #f8f9fa; padding: 30px; border-radius: 8px; text-align: center;">
    <h1 style="color: #28a745;">Signature Confirmed!</h1>
    <p>Hi %s,</p>
    <p>Your signature has been successfully confirmed and added to our petition. Thank you for standing with us!</p>
    <p style="font-size: 14px; color: #666;">Your voice matters. Together, we can make a difference.</p>
  </div>
</body>
</html>`, name),
		Text: fmt.Sprintf(`Signature Confirmed!

Hi %s,

Your signature has been successfully confirmed and added to our petition. Thank you for standing with us!

Your voice matters. Together, we can make a difference.

Best regards,
The Petition Team`, name),
	}
}
