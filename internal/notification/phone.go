package notification

import "strings"

// NormalizePhone converts Malawian phone numbers to E.164 form. Numbers
// already carrying the +265 prefix pass through; bare 265 numbers gain a
// plus; local 09xxxxxxxx numbers are rewritten to +2659xxxxxxxx. Anything
// else is returned unchanged.
func NormalizePhone(phone string) string {
	switch {
	case strings.HasPrefix(phone, "+265"):
		return phone
	case strings.HasPrefix(phone, "265"):
		return "+" + phone
	case strings.HasPrefix(phone, "09"):
		return "+265" + phone[1:]
	}
	return phone
}
