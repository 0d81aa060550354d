package bot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/hotboat/whatsapp-bot/internal/alert"
	"github.com/hotboat/whatsapp-bot/internal/cart"
	"github.com/hotboat/whatsapp-bot/internal/catalog"
	domerrors "github.com/hotboat/whatsapp-bot/internal/errors"
	"github.com/hotboat/whatsapp-bot/internal/modules/faq"
	"github.com/hotboat/whatsapp-bot/internal/storage"
)

var numberRe = regexp.MustCompile(`\b\d{1,2}\b`)

// showExtras sends the numbered extras menu and waits for a selection.
func (d *Dialogue) showExtras(t *Turn) Reply {
	meta := t.Meta()
	meta.Reset()
	meta.AwaitingExtra = true
	return Reply{Text: faq.Answer(faq.TopicExtras)}
}

func (d *Dialogue) handleShortcut(ctx context.Context, t *Turn) (Reply, error) {
	switch shortcutOf(t.Norm) {
	case shortcutExtras:
		return d.showExtras(t), nil
	case shortcutCheckout:
		t.Meta().Reset()
		return d.checkoutShortcut(ctx, t)
	default:
		t.Meta().Reset()
		return Reply{Text: MainMenu}, nil
	}
}

func (d *Dialogue) handleCartOption(ctx context.Context, t *Turn) (Reply, error) {
	n, _ := singleDigit(t.Norm)
	c := d.cartOf(ctx, t)

	switch {
	case n == 1:
		return d.showExtras(t), nil
	case n == 2:
		return d.checkout(ctx, t)
	case n == 3 && c.Flex:
		return d.removeFlex(ctx, t)
	default:
		return d.clear(ctx, t), nil
	}
}

func (d *Dialogue) handleCartCommand(ctx context.Context, t *Turn) (Reply, error) {
	policy := d.carts.Policy()

	switch t.cmd {
	case cmdClear:
		return d.clear(ctx, t), nil

	case cmdRemoveFlex:
		if !d.cartOf(ctx, t).Flex {
			return Reply{Text: noFlexInCart}, nil
		}
		return d.removeFlex(ctx, t)

	case cmdRemoveLine:
		c, err := d.updateCart(ctx, t, func(c *cart.Cart) error {
			if !c.Remove(t.cmdArg - 1) {
				return domerrors.ErrInvalidIndex
			}
			return nil
		})
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: "✅ Item eliminado del carrito\n\n" + cart.Format(c, policy)}, nil

	case cmdAddExtras:
		return d.addExtras(ctx, t, catalog.ExtractExtras(t.Text))

	case cmdUnknownExtra:
		return Reply{Text: unknownExtraOptions}, nil

	case cmdCheckout:
		c, err := d.carts.Load(ctx, t.Contact)
		if err != nil {
			return Reply{}, err
		}
		switch {
		case c.Empty():
			return Reply{Text: emptyCartCheckout}, nil
		case !c.HasReservation():
			return Reply{Text: needReservation}, nil
		}
		return Reply{Text: cart.Format(c, policy) + "\n\n" + cartOptions(c)}, nil

	default:
		c, err := d.carts.Load(ctx, t.Contact)
		if err != nil {
			return Reply{}, err
		}
		if c.Empty() {
			return Reply{Text: cart.EmptyMessage}, nil
		}
		return Reply{Text: cart.Format(c, policy) + "\n\n" + nextSteps}, nil
	}
}

func (d *Dialogue) clear(ctx context.Context, t *Turn) Reply {
	d.clearCart(ctx, t)
	t.Meta().Reset()
	return Reply{Text: clearedMenu}
}

func (d *Dialogue) removeFlex(ctx context.Context, t *Turn) (Reply, error) {
	c, err := d.updateCart(ctx, t, func(c *cart.Cart) error {
		c.Flex = false
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: flexRemoved(c, d.carts.Policy())}, nil
}

// handleExtraSelection answers the extras menu: numbers 1-17, or extras by
// name.
func (d *Dialogue) handleExtraSelection(ctx context.Context, t *Turn) (Reply, error) {
	if mentions := catalog.ExtractExtras(t.Text); len(mentions) > 0 {
		return d.addExtras(ctx, t, mentions)
	}

	var mentions []catalog.Mention
	for _, s := range numberRe.FindAllString(t.Norm, -1) {
		n, _ := strconv.Atoi(s)
		if e, ok := catalog.ExtraByNumber(n); ok {
			mentions = append(mentions, catalog.Mention{Extra: e, Quantity: 1})
		}
	}
	if len(mentions) == 0 {
		t.Meta().AwaitingExtra = false
		return Reply{Text: invalidExtraNumber}, nil
	}
	return d.addExtras(ctx, t, mentions)
}

// addExtras puts every mention in the cart in one write. Plain ice cream
// is held back until the contact picks a flavour.
func (d *Dialogue) addExtras(ctx context.Context, t *Turn, mentions []catalog.Mention) (Reply, error) {
	flavor, hasFlavor := catalog.ParseFlavor(t.Text)
	if _, numeric := singleDigit(t.Norm); numeric {
		hasFlavor = false
	}

	var names []string
	iceCream := 0
	c, err := d.updateCart(ctx, t, func(c *cart.Cart) error {
		for _, m := range mentions {
			qty := max(m.Quantity, 1)
			e := m.Extra
			switch {
			case e.Flex:
				c.Flex = true
				names = append(names, catalog.FlexLineName)
				continue
			case e.NeedsFlavor && !hasFlavor:
				iceCream += qty
				continue
			case e.NeedsFlavor:
				e = catalog.WithFlavor(flavor)
			}
			c.Add(cart.NewExtra(e, qty))
			names = append(names, itemLabel(e.Name, qty))
		}
		return nil
	})
	if err != nil {
		return Reply{}, err
	}

	meta := t.Meta()
	meta.Reset()
	meta.AwaitingExtra = true
	if iceCream > 0 {
		meta.AwaitingFlavor = iceCream
		return Reply{Text: extrasAddedBeforeFlavor(names) + flavorPrompt(iceCream)}, nil
	}
	return Reply{Text: extrasAdded(names, c, d.carts.Policy())}, nil
}

func (d *Dialogue) handleFlavorAnswer(ctx context.Context, t *Turn) (Reply, error) {
	meta := t.Meta()
	qty := meta.AwaitingFlavor

	flavor, ok := catalog.ParseFlavor(t.Text)
	if !ok {
		return Reply{Text: flavorRetry(qty)}, nil
	}

	e := catalog.WithFlavor(flavor)
	c, err := d.updateCart(ctx, t, func(c *cart.Cart) error {
		c.Add(cart.NewExtra(e, qty))
		return nil
	})
	if err != nil {
		return Reply{}, err
	}

	meta.AwaitingFlavor = 0
	meta.AwaitingExtra = true
	return Reply{Text: extrasAdded([]string{itemLabel(e.Name, qty)}, c, d.carts.Policy())}, nil
}

func itemLabel(name string, qty int) string {
	if qty > 1 {
		return fmt.Sprintf("%dx %s", qty, name)
	}
	return name
}

// checkoutShortcut is "20": like checkout but shows the cart when the
// reservation is missing.
func (d *Dialogue) checkoutShortcut(ctx context.Context, t *Turn) (Reply, error) {
	c, err := d.carts.Load(ctx, t.Contact)
	if err != nil {
		return Reply{}, err
	}
	switch {
	case c.Empty():
		return Reply{Text: emptyCartShortcut}, nil
	case !c.HasReservation():
		return Reply{Text: cart.Format(c, d.carts.Policy()) + "\n\n" + needReservation}, nil
	}
	return d.confirmOrder(ctx, t, c), nil
}

// checkout sends the booking request to the captain and empties the cart.
func (d *Dialogue) checkout(ctx context.Context, t *Turn) (Reply, error) {
	c, err := d.carts.Load(ctx, t.Contact)
	if err != nil {
		return Reply{}, err
	}
	switch {
	case c.Empty():
		return Reply{Text: emptyCartCheckout}, nil
	case !c.HasReservation():
		return Reply{Text: needReservation}, nil
	}
	return d.confirmOrder(ctx, t, c), nil
}

func (d *Dialogue) confirmOrder(ctx context.Context, t *Turn, c cart.Cart) Reply {
	policy := d.carts.Policy()
	text := checkoutConfirmation(c, policy)

	d.notifyCaptain(ctx, captainReservation(t.Name, t.Contact, c, policy), alert.PriorityHigh)
	d.clearCart(ctx, t)
	t.Meta().Reset()
	d.setLeadStatus(ctx, t.Contact, storage.LeadPotentialClient)

	d.logger.WithField("total", c.Total(policy)).InfoContext(ctx, "Booking request sent to the captain")
	return Reply{Text: text}
}
