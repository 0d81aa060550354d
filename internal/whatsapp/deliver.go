package whatsapp

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/hotboat/whatsapp-bot/internal/modules/lodging"
)

// Deliver sends a turn's reply: the text first, then media items in order.
// An image that fails is replaced by its caption as text. Delivery goes on
// after a failed item; the joined errors are returned.
func (c *Client) Deliver(ctx context.Context, to, text string, items []lodging.MediaItem) error {
	var errs []error

	if strings.TrimSpace(text) != "" {
		if err := c.SendText(ctx, to, text); err != nil {
			errs = append(errs, err)
		}
	}

	for _, item := range items {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		switch item.Kind {
		case lodging.KindImage:
			err := c.SendImage(ctx, to, item.ImageURL, item.Caption)
			if err == nil {
				continue
			}
			c.logger.WithError(err).
				WithField("image_url", item.ImageURL).
				WarnContext(ctx, "Image send failed, sending caption as text")
			if item.Caption == "" {
				errs = append(errs, err)
				continue
			}
			if err := c.SendText(ctx, to, item.Caption); err != nil {
				errs = append(errs, err)
			}
		default:
			if err := c.SendText(ctx, to, item.Text); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

// SplitText breaks text into parts of at most limit runes, preferring
// paragraph and line boundaries.
func SplitText(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if curLen+n > limit {
			flush()
		}
		// A single line longer than the limit is cut hard.
		for n > limit {
			head := truncateRunes(line, limit)
			parts = append(parts, head)
			line = line[len(head):]
			n = utf8.RuneCountInString(line)
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()
	return parts
}

// truncateRunes returns at most n runes of s.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
