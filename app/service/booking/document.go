package booking

import (
	"fmt"
	"strings"

	"wertchat/app/service/store"
)

// DocumentExporter renders a saved quote for download.
type DocumentExporter interface {
	Export(rec store.QuoteRecord) (string, error)
}

// textExporter is the default exporter, a plain-text offer document.
type textExporter struct{}

func (textExporter) Export(rec store.QuoteRecord) (string, error) {
	return renderDocument(rec), nil
}

func renderDocument(rec store.QuoteRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Angebot %s\n", rec.Number)
	if rec.Title != "" {
		b.WriteString(rec.Title + "\n")
	}
	b.WriteString("Digitalwert - Agentur für digitale Wertschöpfung\n")
	fmt.Fprintf(&b, "Erstellt am: %s\n", rec.CreatedAt.Format("02.01.2006"))

	if rec.CustomerName != "" {
		fmt.Fprintf(&b, "Kunde: %s\n", rec.CustomerName)
	}

	b.WriteString("\n")

	for i, item := range rec.Items {
		fmt.Fprintf(&b, "Position %d: %s\n", i+1, item.Service)

		if item.Description != "" {
			fmt.Fprintf(&b, "  %s\n", item.Description)
		}

		if item.EstimatedHours != nil {
			fmt.Fprintf(&b, "  Aufwand: %g Std.", *item.EstimatedHours)

			if item.Complexity != "" {
				fmt.Fprintf(&b, ", Komplexität: %s", item.Complexity)
			}

			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "  Preis: %s\n\n", item.PriceLabel())
	}

	fmt.Fprintf(&b, "Nettosumme: %d €\n", rec.NetTotal)
	fmt.Fprintf(&b, "zzgl. 19 %% MwSt.: %d €\n", rec.VATAmount)
	fmt.Fprintf(&b, "Gesamtsumme: %d €\n\n", rec.GrossTotal)

	b.WriteString("Angebot gültig für 30 Tage.\n")

	return b.String()
}
