// Package main is a consistency checker for the static sales data: prices,
// the numbered extras menu, FAQ answers, accommodation images and slots.
// It exits non-zero when any check fails, so it can gate a release.
package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/hotboat/whatsapp-bot/internal/availability"
	"github.com/hotboat/whatsapp-bot/internal/catalog"
	"github.com/hotboat/whatsapp-bot/internal/dateparse"
	"github.com/hotboat/whatsapp-bot/internal/modules/faq"
	"github.com/hotboat/whatsapp-bot/internal/modules/lodging"
)

// Verification results
type verifyResult struct {
	name    string
	passed  bool
	message string
}

func main() {
	fmt.Println("🔍 HotBoat WhatsApp Bot - Sales Data Verification Tool")
	fmt.Println("======================================================")

	results := []verifyResult{}

	results = append(results, verifyPricing()...)
	results = append(results, verifyExtrasMenu()...)
	results = append(results, verifyFlavors()...)
	results = append(results, verifyFAQ()...)
	results = append(results, verifyLodging()...)
	results = append(results, verifySlots()...)

	fmt.Println("\n📊 Verification Results:")
	fmt.Println("========================")

	passedCount := 0
	failedCount := 0

	for _, result := range results {
		status := "❌"
		if result.passed {
			status = "✅"
			passedCount++
		} else {
			failedCount++
		}
		fmt.Printf("%s %s: %s\n", status, result.name, result.message)
	}

	fmt.Printf("\n📈 Summary: %d passed, %d failed\n", passedCount, failedCount)

	if failedCount > 0 {
		os.Exit(1)
	}
}

// verifyPricing checks that every party size has a price and that larger
// groups never pay more per person.
func verifyPricing() []verifyResult {
	results := []verifyResult{}

	prev := 0
	for n := catalog.MinPartySize; n <= catalog.MaxPartySize; n++ {
		price := catalog.PriceForPartySize(n)
		ok := price > 0 && (prev == 0 || price <= prev)
		results = append(results, verifyResult{
			name:    fmt.Sprintf("Price for %d people", n),
			passed:  ok,
			message: fmt.Sprintf("%d CLP per person, %d CLP total", price, price*n),
		})
		prev = price
	}

	outside := catalog.PriceForPartySize(catalog.MaxPartySize + 1)
	results = append(results, verifyResult{
		name:    "Price outside the table",
		passed:  outside == catalog.DefaultPricePerPerson,
		message: fmt.Sprintf("Expected default %d, got %d", catalog.DefaultPricePerPerson, outside),
	})

	return results
}

// verifyExtrasMenu checks numbering, prices and that each extra can be
// found by its own display name.
func verifyExtrasMenu() []verifyResult {
	results := []verifyResult{}

	var misnumbered, unpriced, unresolved []string
	for n := 1; n <= catalog.MenuSize(); n++ {
		e, ok := catalog.ExtraByNumber(n)
		if !ok || e.Number != n {
			misnumbered = append(misnumbered, fmt.Sprint(n))
			continue
		}
		if !e.Flex && e.Price <= 0 {
			unpriced = append(unpriced, e.Key)
		}
		if e.Flex {
			continue
		}
		if got, ok := catalog.LookupExtra(e.Name); !ok || got.Key != e.Key {
			unresolved = append(unresolved, e.Key)
		}
	}

	results = append(results,
		listResult("Extras Menu Numbering", misnumbered, fmt.Sprintf("Items 1-%d in order", catalog.MenuSize())),
		listResult("Extras Have Prices", unpriced, "Every non-flex extra has a positive price"),
		listResult("Extras Resolve By Name", unresolved, "Every display name maps back to its extra"),
	)

	_, beyond := catalog.ExtraByNumber(catalog.MenuSize() + 1)
	results = append(results, verifyResult{
		name:    "Extras Menu Upper Bound",
		passed:  !beyond,
		message: fmt.Sprintf("Number %d is rejected", catalog.MenuSize()+1),
	})

	return results
}

// verifyFlavors checks that both ice cream flavours are selectable by number.
func verifyFlavors() []verifyResult {
	results := []verifyResult{}

	for _, want := range []catalog.Flavor{catalog.FlavorCookies, catalog.FlavorFrambuesa} {
		got, ok := catalog.ParseFlavor(fmt.Sprint(want.Number))
		results = append(results, verifyResult{
			name:    "Ice Cream Flavor: " + want.Label,
			passed:  ok && got == want,
			message: catalog.WithFlavor(want).Name,
		})
	}

	return results
}

// verifyFAQ checks that every topic has an answer.
func verifyFAQ() []verifyResult {
	topics := []faq.Topic{
		faq.TopicFeatures, faq.TopicPricing, faq.TopicLocation, faq.TopicBring, faq.TopicSeason,
		faq.TopicContact, faq.TopicCancellation, faq.TopicExtras, faq.TopicLodging,
	}

	var missing []string
	for _, t := range topics {
		if strings.TrimSpace(faq.Answer(t)) == "" {
			missing = append(missing, string(t))
		}
	}
	return []verifyResult{listResult("FAQ Answers", missing, fmt.Sprintf("%d topics answered", len(topics)))}
}

// verifyLodging checks that each accommodation has an HTTPS image.
func verifyLodging() []verifyResult {
	var missing []string
	for _, o := range lodging.Options() {
		url, ok := lodging.DefaultImages[o.Key]
		if !ok || !strings.HasPrefix(url, "https://") {
			missing = append(missing, o.Key)
		}
	}
	return []verifyResult{listResult("Accommodation Images", missing, fmt.Sprintf("%d options with HTTPS images", len(lodging.Options())))}
}

// verifySlots checks the departure hours against the trip duration.
func verifySlots() []verifyResult {
	cfg := availability.DefaultConfig(nil)

	results := []verifyResult{{
		name:    "Departure Hours Sorted",
		passed:  slices.IsSorted(dateparse.Slots) && len(dateparse.Slots) > 0,
		message: fmt.Sprintf("%v", dateparse.Slots),
	}}

	var overlapping []string
	for i := 1; i < len(cfg.Hours); i++ {
		gap := cfg.Hours[i] - cfg.Hours[i-1]
		if float64(gap) < cfg.Duration.Hours() {
			overlapping = append(overlapping, fmt.Sprintf("%d:00-%d:00", cfg.Hours[i-1], cfg.Hours[i]))
		}
	}
	results = append(results, listResult("Departures Do Not Overlap", overlapping,
		fmt.Sprintf("Trips last %v", cfg.Duration)))

	return results
}

func listResult(name string, failures []string, okMessage string) verifyResult {
	if len(failures) == 0 {
		return verifyResult{name: name, passed: true, message: okMessage}
	}
	return verifyResult{name: name, passed: false, message: fmt.Sprintf("Failed: %v", failures)}
}
