package whatsapp

// WhatsApp Cloud API limits (rune count).
// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/reference/messages
const (
	MaxTextLength    = 4096 // Text message body
	MaxCaptionLength = 1024 // Image caption
)

// TextSafeBuffer leaves room below MaxTextLength when a long reply is split.
const TextSafeBuffer = 4000
