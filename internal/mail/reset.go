package mail

import (
	"fmt"
	"html"
	"time"
)

// PasswordReset builds the mail carrying a reset code
func PasswordReset(to, name, code string, expiry time.Duration) *Message {
	minutes := int(expiry.Minutes())

	text := fmt.Sprintf(`Hello %s,

You requested a password reset. Your one-time code is:

%s

The code expires in %d minutes. If you didn't ask for this, you can ignore this mail.
`, name, code, minutes)

	body := fmt.Sprintf(`<p>Hello %s,</p>
<p>You requested a password reset. Your one-time code is:</p>
<p style="font-size:24px;font-weight:bold;letter-spacing:4px">%s</p>
<p>The code expires in %d minutes. If you didn't ask for this, you can ignore this mail.</p>
`, html.EscapeString(name), code, minutes)

	return &Message{
		To:      to,
		Subject: "Your password reset code",
		Text:    text,
		HTML:    body,
	}
}
